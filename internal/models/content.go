package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProjectInProgress = "en_progreso"
	ProjectCompleted  = "completado"
	ProjectPlanned    = "planificado"
)

var ProjectStatuses = []string{ProjectInProgress, ProjectCompleted, ProjectPlanned}

func ValidProjectStatus(s string) bool { return contains(ProjectStatuses, s) }

type Service struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Description string `json:"description" gorm:"type:text"`
	Icon        string `json:"icon" gorm:"type:varchar(50)"`
	SortOrder   int    `json:"sort_order" gorm:"not null;default:0"`
	Active      bool   `json:"active" gorm:"not null;default:true"`
}

type Project struct {
	ID                uint                `json:"id" gorm:"primaryKey"`
	Name              string              `json:"name" gorm:"type:varchar(200);not null"`
	Description       string              `json:"description" gorm:"type:text"`
	Image             *string             `json:"image" gorm:"type:varchar(200)"`
	StartDate         *time.Time          `json:"start_date"`
	EndDate           *time.Time          `json:"end_date"`
	Status            string              `json:"status" gorm:"type:varchar(20);not null;default:'planificado';index"`
	Budget            decimal.NullDecimal `json:"budget" gorm:"type:decimal(15,2)"`
	CompletionPercent int                 `json:"completion_percent" gorm:"not null;default:0"`
	Active            bool                `json:"active" gorm:"not null;default:true"`
	CreatedAt         time.Time           `json:"created_at"`
}

type Notice struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(200);not null"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	Type        string     `json:"type" gorm:"type:varchar(50);not null;default:'general';index"`
	PublishedAt time.Time  `json:"published_at" gorm:"index"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Important   bool       `json:"important" gorm:"not null;default:false"`
	Active      bool       `json:"active" gorm:"not null;default:true"`
}
