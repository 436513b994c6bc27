package models

import (
	"time"
)

const (
	ReportPending    = "pendiente"
	ReportInProgress = "en_proceso"
	ReportResolved   = "resuelto"

	PriorityLow    = "baja"
	PriorityMedium = "media"
	PriorityHigh   = "alta"

	ComplaintInReview      = "en_revision"
	ComplaintInvestigating = "en_investigacion"
	ComplaintResolved      = "resuelta"
	ComplaintDismissed     = "desestimada"

	CommentKindComment     = "comentario"
	CommentKindAdminAnswer = "respuesta_admin"

	ContactNew     = "nuevo"
	ContactReplied = "respondido"
)

var (
	ReportStatuses    = []string{ReportPending, ReportInProgress, ReportResolved}
	ReportPriorities  = []string{PriorityLow, PriorityMedium, PriorityHigh}
	ComplaintStatuses = []string{ComplaintInReview, ComplaintInvestigating, ComplaintResolved, ComplaintDismissed}
)

type Report struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;index"`
	User        User      `json:"-" gorm:"foreignKey:UserID"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Category    string    `json:"category" gorm:"type:varchar(50);not null;index"`
	Location    string    `json:"location" gorm:"type:varchar(200);not null"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Status      string    `json:"status" gorm:"type:varchar(20);not null;default:'pendiente';index"`
	Priority    string    `json:"priority" gorm:"type:varchar(20);not null;default:'media'"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
	Image       *string   `json:"image" gorm:"type:varchar(200)"`
}

type Complaint struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	UserID             uint      `json:"user_id" gorm:"not null;index"`
	User               User      `json:"-" gorm:"foreignKey:UserID"`
	Title              string    `json:"title" gorm:"type:varchar(200);not null"`
	Description        string    `json:"description" gorm:"type:text;not null"`
	Type               string    `json:"type" gorm:"type:varchar(50);not null;index"`
	AccusedName        string    `json:"accused_name" gorm:"type:varchar(100)"`
	AccusedPosition    string    `json:"accused_position" gorm:"type:varchar(100)"`
	AccusedInstitution string    `json:"accused_institution" gorm:"type:varchar(100)"`
	Evidence           *string   `json:"evidence" gorm:"type:text"`
	Status             string    `json:"status" gorm:"type:varchar(20);not null;default:'en_revision';index"`
	CreatedAt          time.Time `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time `json:"updated_at"`
	Anonymous          bool      `json:"anonymous" gorm:"not null;default:false"`
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReportID  uint      `json:"report_id" gorm:"not null;index"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind" gorm:"type:varchar(20);not null;default:'comentario'"`
}

type ContactMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Email     string    `json:"email" gorm:"type:varchar(120);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(20)"`
	Subject   string    `json:"subject" gorm:"type:varchar(200);not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null;default:'nuevo';index"`
	CreatedAt time.Time `json:"created_at"`
	Reply     *string   `json:"reply" gorm:"type:text"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func ValidReportStatus(s string) bool    { return contains(ReportStatuses, s) }
func ValidPriority(s string) bool        { return contains(ReportPriorities, s) }
func ValidComplaintStatus(s string) bool { return contains(ComplaintStatuses, s) }
