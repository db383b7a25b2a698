package core

import (
	"net/url"
	"strconv"
	"time"
)

// ListParams are the filter and pagination inputs of list endpoints.
// The zero value requests the first page with server defaults.
type ListParams struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}

// Query encodes the params as URL query values, omitting zero fields.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q
}

// UserAccount is a user row in the admin user table
type UserAccount struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// SystemLog is an audit/system log entry shown to admins
type SystemLog struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Feedback struct {
	ID            int64     `json:"id"`
	OpportunityID int64     `json:"opportunity_id"`
	UserID        int64     `json:"user_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

type Opportunity struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	Status         string     `json:"status"`
	StartsAt       *time.Time `json:"start_date,omitempty"`
	EndsAt         *time.Time `json:"end_date,omitempty"`
	Slots          int        `json:"volunteers_needed"`
}

// ApplicationStatus is the review state of a volunteer application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type Application struct {
	ID            int64             `json:"id"`
	OpportunityID int64             `json:"opportunity_id"`
	VolunteerID   int64             `json:"volunteer_id"`
	Status        ApplicationStatus `json:"status"`
	Message       string            `json:"message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ApplicationStats counts applications per status. Known statuses are always
// present, with a zero count when absent.
func ApplicationStats(apps []Application) map[ApplicationStatus]int {
	stats := map[ApplicationStatus]int{
		ApplicationPending:  0,
		ApplicationAccepted: 0,
		ApplicationRejected: 0,
	}
	for _, a := range apps {
		stats[a.Status]++
	}
	return stats
}

// Assignment is a task assigned to a volunteer
type Assignment struct {
	ID            int64      `json:"id"`
	OpportunityID int64      `json:"opportunity_id"`
	VolunteerID   int64      `json:"volunteer_id"`
	Task          string     `json:"task"`
	Status        string     `json:"status"`
	DueAt         *time.Time `json:"due_date,omitempty"`
}

type Message struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
