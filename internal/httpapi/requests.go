package httpapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"worshipScheduling/models"
)

// flexID accepts a JSON number or a numeric string. Anything else decodes to 0, which
// callers treat as "no usable id".
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	if v, err := strconv.ParseInt(string(b), 10, 64); err == nil && v > 0 {
		*f = flexID(v)
	}
	return nil
}

type songRequest struct {
	SongName    string `json:"songName"`
	YoutubeLink string `json:"youtubeLink"`
}

type participationRequest struct {
	UserID     flexID `json:"userId"`
	Instrument string `json:"instrument"`
}

type scheduleRequest struct {
	ScheduleDate   string                 `json:"scheduleDate"`
	Cifras         *string                `json:"cifras"`
	PaletaCores    *string                `json:"paletaCores"`
	Songs          []songRequest          `json:"songs"`
	Participations []participationRequest `json:"participations"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns it in UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// draft validates the request and turns it into a repository draft. Songs without a name
// and participations without a usable user or instrument are dropped; repeated
// (user, instrument) pairs are collapsed.
func (r scheduleRequest) draft() (models.ScheduleDraft, error) {
	date, ok := parseDate(r.ScheduleDate)
	if !ok {
		return models.ScheduleDraft{}, badRequest("scheduleDate is required (YYYY-MM-DD or RFC 3339)")
	}
	songs := lo.FilterMap(r.Songs, func(s songRequest, _ int) (models.SongInput, bool) {
		name := strings.TrimSpace(s.SongName)
		return models.SongInput{SongName: name, YoutubeLink: strings.TrimSpace(s.YoutubeLink)}, name != ""
	})
	parts := lo.FilterMap(r.Participations, func(p participationRequest, _ int) (models.ParticipationInput, bool) {
		instrument := strings.ToUpper(strings.TrimSpace(p.Instrument))
		return models.ParticipationInput{UserID: int64(p.UserID), Instrument: instrument}, p.UserID > 0 && instrument != ""
	})
	parts = lo.UniqBy(parts, func(p models.ParticipationInput) models.ParticipationInput { return p })
	return models.ScheduleDraft{
		ScheduleDate:   date,
		Cifras:         r.Cifras,
		PaletaCores:    r.PaletaCores,
		Songs:          songs,
		Participations: parts,
	}, nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userRequest struct {
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Instruments []string `json:"instruments"`
}

type changeRequest struct {
	Reason string `json:"reason"`
}

// optional returns nil for a blank string.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseRole(s string) (models.Role, bool) {
	r := models.Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// pathID reads a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// bind decodes the JSON body; a malformed body is a 400.
func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
