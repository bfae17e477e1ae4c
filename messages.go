package main

// yardInfo tells clients the dimensions and cadence they are watching.
type yardInfo struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	TickRate int     `json:"tickRate"`
}

type joinResponse struct {
	Ver        int         `json:"ver"`
	ID         string      `json:"id"`
	Cats       []Cat       `json:"cats"`
	Placements []Placement `json:"placements,omitempty"`
	Yard       yardInfo    `json:"yard"`
}

type stateMessage struct {
	Ver        int         `json:"ver"`
	Type       string      `json:"type"`
	Cats       []Cat       `json:"cats"`
	Placements []Placement `json:"placements,omitempty"`
	Tick       uint64      `json:"t"`
	ServerTime int64       `json:"serverTime"`
}

type clientMessage struct {
	Type   string  `json:"type"`
	Kind   string  `json:"kind,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Name   string  `json:"name,omitempty"`
	Coat   string  `json:"coat,omitempty"`
	CatID  string  `json:"catId,omitempty"`
	SentAt int64   `json:"sentAt,omitempty"`
}

type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type petResultMessage struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	CatID string `json:"catId,omitempty"`
	OK    bool   `json:"ok"`
}

type diagnosticsKeeper struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}
