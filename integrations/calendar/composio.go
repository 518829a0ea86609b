// Package calendar schedules interviews on Google Calendar through Composio.
package calendar

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/config"
	"github.com/BaSui01/recruitflow/internal/httpjson"
	"github.com/BaSui01/recruitflow/types"
)

const createEventAction = "GOOGLECALENDAR_CREATE_EVENT"

// Event describes a meeting to put on the calendar.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	Attendees   []string
}

// Scheduled is the created calendar event.
type Scheduled struct {
	EventID     string
	MeetingLink string
}

type createEventArgs struct {
	Summary              string   `json:"summary"`
	Description          string   `json:"description,omitempty"`
	StartDatetime        string   `json:"start_datetime"`
	EventDurationMinutes int      `json:"event_duration_minutes"`
	Attendees            []string `json:"attendees,omitempty"`
	Timezone             string   `json:"timezone,omitempty"`
	CreateMeetingRoom    bool     `json:"create_meeting_room"`
}

type executeRequest struct {
	UserID    string          `json:"user_id,omitempty"`
	Arguments createEventArgs `json:"arguments"`
}

type executeResponse struct {
	Data       json.RawMessage `json:"data"`
	Successful bool            `json:"successful"`
	Error      *string         `json:"error"`
}

// Composio executes Google Calendar actions for one connected account.
type Composio struct {
	client   *httpjson.Client
	entityID string
	timeZone string
	logger   *zap.Logger
}

// NewComposio creates the scheduler.
func NewComposio(cfg config.ComposioConfig, logger *zap.Logger) *Composio {
	return newComposio(httpjson.Config{
		Provider: "composio",
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
		Headers:  map[string]string{"x-api-key": cfg.APIKey},
	}, cfg.EntityID, cfg.TimeZone, logger)
}

func newComposio(cfg httpjson.Config, entityID, timeZone string, logger *zap.Logger) *Composio {
	if logger == nil {
		logger = zap.NewNop()
	}
	if entityID == "" {
		entityID = "default"
	}
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &Composio{
		client:   httpjson.New(cfg, logger),
		entityID: entityID,
		timeZone: timeZone,
		logger:   logger.With(zap.String("component", "calendar")),
	}
}

// Schedule creates the event with a video meeting room attached.
func (c *Composio) Schedule(ctx context.Context, ev Event) (*Scheduled, error) {
	if ev.Title == "" || ev.Start.IsZero() {
		return nil, types.InvalidRequest("event title and start are required")
	}
	minutes := int(ev.Duration / time.Minute)
	if minutes <= 0 {
		minutes = 30
	}

	loc, err := time.LoadLocation(c.timeZone)
	if err != nil {
		loc = time.UTC
	}

	req := executeRequest{
		UserID: c.entityID,
		Arguments: createEventArgs{
			Summary:              ev.Title,
			Description:          ev.Description,
			StartDatetime:        ev.Start.In(loc).Format("2006-01-02T15:04:05"),
			EventDurationMinutes: minutes,
			Attendees:            ev.Attendees,
			Timezone:             c.timeZone,
			CreateMeetingRoom:    true,
		},
	}

	var resp executeResponse
	if err := c.client.Post(ctx, "/tools/execute/"+createEventAction, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Successful {
		msg := "calendar action failed"
		if resp.Error != nil && *resp.Error != "" {
			msg = *resp.Error
		}
		return nil, types.NewError(types.ErrUpstreamError, msg).WithProvider("composio")
	}

	out := parseEvent(resp.Data)
	c.logger.Info("calendar event created",
		zap.String("event_id", out.EventID),
		zap.Bool("has_link", out.MeetingLink != ""),
	)
	return &out, nil
}

// parseEvent digs the event id and join link out of the action data, which
// wraps the Google event under response_data or returns it bare.
func parseEvent(data json.RawMessage) Scheduled {
	var node map[string]any
	if err := json.Unmarshal(data, &node); err != nil {
		return Scheduled{}
	}
	for _, key := range []string{"response_data", "event", "data"} {
		if inner, ok := node[key].(map[string]any); ok {
			node = inner
			break
		}
	}

	var s Scheduled
	s.EventID, _ = node["id"].(string)
	if link, _ := node["hangoutLink"].(string); link != "" {
		s.MeetingLink = link
	} else if conf, ok := node["conferenceData"].(map[string]any); ok {
		if eps, ok := conf["entryPoints"].([]any); ok {
			for _, ep := range eps {
				m, _ := ep.(map[string]any)
				if uri, _ := m["uri"].(string); strings.HasPrefix(uri, "https://") {
					s.MeetingLink = uri
					break
				}
			}
		}
	}
	if s.MeetingLink == "" {
		s.MeetingLink, _ = node["htmlLink"].(string)
	}
	return s
}
