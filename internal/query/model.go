package query

import "time"

type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
}

type Answer struct {
	Response  string    `json:"response"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
}

type Stats struct {
	UsedToday int        `json:"queries_used_today"`
	Remaining int        `json:"queries_remaining"`
	ResetAt   *time.Time `json:"reset_at"`
}
