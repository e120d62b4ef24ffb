package dto

type StatsResponse struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Torrents      int   `json:"torrents"`
	Peers         int   `json:"peers"`
	UDP           UDPStatsResponse   `json:"udp"`
	Events        EventStatsResponse `json:"events"`
}

type UDPStatsResponse struct {
	Connects    int64 `json:"connects"`
	Announces   int64 `json:"announces"`
	Scrapes     int64 `json:"scrapes"`
	Errors      int64 `json:"errors"`
	RateLimited int64 `json:"rate_limited"`
}

type EventStatsResponse struct {
	Started      int64 `json:"started"`
	Stopped      int64 `json:"stopped"`
	Completed    int64 `json:"completed"`
	ExpiredPeers int64 `json:"expired_peers"`
}
