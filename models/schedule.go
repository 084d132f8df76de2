package models

import "time"

// Schedule is a dated roster ("escala") with its songs and team.
type Schedule struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	ScheduleDate   time.Time       `json:"scheduleDate"`
	Cifras         *string         `gorm:"column:cifras" json:"cifras"`
	PaletaCores    *string         `gorm:"column:paleta_cores" json:"paletaCores"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Songs          []Song          `gorm:"foreignKey:ScheduleID" json:"songs"`
	Participations []Participation `gorm:"foreignKey:ScheduleID" json:"participations"`
	Confirmations  []Confirmation  `gorm:"foreignKey:ScheduleID" json:"confirmations"`
	ChangeRequests []ChangeRequest `gorm:"foreignKey:ScheduleID" json:"changeRequests"`
}

func (Schedule) TableName() string { return "schedules" }

type Song struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	ScheduleID  int64  `json:"scheduleId"`
	Position    int    `json:"position"`
	SongName    string `json:"songName"`
	YoutubeLink string `json:"youtubeLink"`
}

func (Song) TableName() string { return "schedule_songs" }

// Participation assigns one user to one instrument within one schedule.
type Participation struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	ScheduleID int64       `json:"scheduleId"`
	UserID     int64       `json:"userId"`
	Instrument string      `json:"instrument"`
	User       *PublicUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Participation) TableName() string { return "schedule_participations" }

// Confirmation marks that a user will attend. Its presence is the confirmation.
type Confirmation struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	ScheduleID int64       `json:"scheduleId"`
	UserID     int64       `json:"userId"`
	CreatedAt  time.Time   `json:"createdAt"`
	User       *PublicUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Confirmation) TableName() string { return "schedule_confirmations" }

type ChangeRequest struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	ScheduleID int64       `json:"scheduleId"`
	UserID     int64       `json:"userId"`
	Reason     string      `json:"reason"`
	Resolved   bool        `json:"resolved"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	User       *PublicUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ChangeRequest) TableName() string { return "schedule_change_requests" }

// SongInput is a song as submitted by a client; Position follows slice order.
type SongInput struct {
	SongName    string
	YoutubeLink string
}

// ParticipationInput assigns UserID to Instrument.
type ParticipationInput struct {
	UserID     int64
	Instrument string
}

// ScheduleDraft carries the writable fields of a schedule for create and replace.
// Nil Cifras or PaletaCores leave the stored value unchanged on replace.
type ScheduleDraft struct {
	ScheduleDate   time.Time
	Cifras         *string
	PaletaCores    *string
	Songs          []SongInput
	Participations []ParticipationInput
}
