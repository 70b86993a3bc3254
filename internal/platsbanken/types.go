package platsbanken

type searchFilter struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type searchRequest struct {
	Filters    []searchFilter `json:"filters"`
	FromDate   *string        `json:"fromDate"`
	Order      string         `json:"order"`
	MaxRecords int            `json:"maxRecords"`
	StartIndex int            `json:"startIndex"`
	ToDate     string         `json:"toDate"`
	Source     string         `json:"source"`
}

type searchResponse struct {
	Ads []struct {
		ID string `json:"id"`
	} `json:"ads"`
	NumberOfAds int `json:"numberOfAds"`
}

type requirement struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

type jobResponse struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	Languages           []requirement `json:"languages"`
	WorkExperiences     []requirement `json:"workExperiences"`
	LastApplicationDate string        `json:"lastApplicationDate"`
	Application         struct {
		WebAddress string `json:"webAddress"`
	} `json:"application"`
}
