package server

type Meta struct {
	Total     int  `json:"total"`
	PageSize  int  `json:"page_size"`
	Pages     int  `json:"pages"`
	Exhausted bool `json:"exhausted"`
}

type Res struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`
	Meta  *Meta       `json:"meta,omitempty"`
}
