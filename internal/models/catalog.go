package models

// Sport is a sport listed by the provider
type Sport struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Bookmaker is a bookmaker listed by the provider
type Bookmaker struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Region   string `json:"region,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Participant is a team or player listed by the provider
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Sport   string `json:"sport"`
	Country string `json:"country,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// ParticipantPage is one page of a participant listing
type ParticipantPage struct {
	Data  []Participant `json:"data"`
	Total int           `json:"total"`
}
