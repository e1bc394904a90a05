package roomhandler

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type HistoryQuery struct {
	Limit int `form:"limit,default=50" binding:"gte=0"`
} // @name HistoryQuery
