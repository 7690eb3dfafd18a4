package models

import "time"

// NotSpecified is substituted for any non-nullable text field missing upstream.
const NotSpecified = "Not specified"

// IncidentRecord is the canonical stop-and-search record. Pointer fields are
// nullable: nil means "not provided", which is distinct from an empty value.
type IncidentRecord struct {
	AgeRange                       string        `json:"ageRange"`
	Outcome                        string        `json:"outcome"`
	InvolvedPerson                 bool          `json:"involvedPerson"`
	SelfDefinedEthnicity           string        `json:"selfDefinedEthnicity"`
	Gender                         string        `json:"gender"`
	Legislation                    *string       `json:"legislation"`
	OutcomeLinkedToObjectOfSearch  *bool         `json:"outcomeLinkedToObjectOfSearch"`
	Datetime                       string        `json:"datetime"`
	RemovalOfMoreThanOuterClothing bool          `json:"removalOfMoreThanOuterClothing"`
	OutcomeObject                  OutcomeObject `json:"outcomeObject"`
	Location                       *Location     `json:"location"`
	Operation                      *string       `json:"operation"`
	OfficerDefinedEthnicity        *string       `json:"officerDefinedEthnicity"`
	Type                           string        `json:"type"`
	OperationName                  *string       `json:"operationName"`
	ObjectOfSearch                 string        `json:"objectOfSearch"`
}

type OutcomeObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Location struct {
	Latitude  string `json:"latitude"`
	Street    Street `json:"street"`
	Longitude string `json:"longitude"`
}

type Street struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StreetName returns the street name, or "" when the record carries no location.
func (r IncidentRecord) StreetName() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.Street.Name
}

// DateAvailability is one entry of the upstream crimes-street-dates listing.
// Categories maps a dataset key (e.g. "stop-and-search") to the forces that
// published data for Date.
type DateAvailability struct {
	Date       string
	Categories map[string][]string
}

// AvailableDates is the descending list of months with data for a force.
type AvailableDates struct {
	Dates    []string `json:"dates"`
	Total    int      `json:"total"`
	Latest   string   `json:"latest"`
	Earliest string   `json:"earliest"`
}

// Window returns the n most recent months.
func (a *AvailableDates) Window(n int) []string {
	if n <= 0 || n >= len(a.Dates) {
		return a.Dates
	}
	return a.Dates[:n]
}

// MonthStatusKind classifies the outcome of one month's fetch.
type MonthStatusKind string

const (
	MonthStatusOK          MonthStatusKind = "ok"
	MonthStatusEmpty       MonthStatusKind = "empty"
	MonthStatusFailed      MonthStatusKind = "failed"
	MonthStatusRateLimited MonthStatusKind = "rate_limited"
	MonthStatusTimeout     MonthStatusKind = "timeout"
)

type MonthStatus struct {
	Month   string          `json:"month"`
	Status  MonthStatusKind `json:"status"`
	Records int             `json:"records"`
	Dropped int             `json:"dropped,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CollectionResult is what a collector run gathered. A run where every month
// failed still has an empty Error; consult Months for per-month detail.
type CollectionResult struct {
	Records []IncidentRecord `json:"records"`
	Months  []MonthStatus    `json:"months"`
	Error   string           `json:"error,omitempty"`
}

// RefreshSummary describes one completed dashboard refresh.
type RefreshSummary struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Months      []MonthStatus `json:"months"`
	Records     int           `json:"records"`
	Error       string        `json:"error,omitempty"`
}
