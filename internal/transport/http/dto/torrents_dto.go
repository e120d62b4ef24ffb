package dto

type TorrentResponse struct {
	InfoHash  string `json:"info_hash"`
	Seeders   int32  `json:"seeders"`
	Leechers  int32  `json:"leechers"`
	Completed int32  `json:"completed"`
}

type TorrentListResponse struct {
	Torrents []TorrentResponse `json:"torrents"`
}

type WhitelistResponse struct {
	InfoHashes []string `json:"info_hashes"`
}
