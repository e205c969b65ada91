package chi

// boostRequest is the body of POST /boost.
type boostRequest struct {
	Text string `json:"text"`
}

type tokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type boostResponse struct {
	Message    string     `json:"message"`
	TokenUsage tokenUsage `json:"token_usage"`
}

type usageWindow struct {
	Current   int64 `json:"current"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

type usageResponse struct {
	DailyRequests usageWindow `json:"daily_requests"`
	MonthlyTokens usageWindow `json:"monthly_tokens"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type dailyLimitResponse struct {
	Error             string `json:"error"`
	RemainingRequests int64  `json:"remaining_requests"`
	ResetTime         int64  `json:"reset_time"`
}

type monthlyLimitResponse struct {
	Error        string `json:"error"`
	CurrentUsage int64  `json:"current_usage"`
	Limit        int64  `json:"limit"`
}
