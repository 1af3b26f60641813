package plan_export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/workout"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrUnauthenticated = fmt.Errorf("google calendar is not authorized, run the authorization flow first")

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CalendarID   string
	TokenPath    string
	RedirectURL  string
}

// GoogleExporter writes day events into a Google Calendar. Events get an id
// derived from the date, so exporting twice updates instead of duplicating.
type GoogleExporter struct {
	oauthConfig *oauth2.Config
	calendarID  string
	tokenPath   string
	newService  func(ctx context.Context) (*gcal.Service, error)
}

func NewGoogleExporter(cfg GoogleConfig) *GoogleExporter {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = "urn:ietf:wg:oauth:2.0:oob"
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	g := &GoogleExporter{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
		calendarID: calendarID,
		tokenPath:  cfg.TokenPath,
	}
	g.newService = g.prepareGoogleService
	return g
}

// AuthCodeURL is the consent page the user opens to obtain an authorization code.
func (g *GoogleExporter) AuthCodeURL(state string) string {
	return g.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Authorize exchanges the code for a token and stores it.
func (g *GoogleExporter) Authorize(ctx context.Context, code string) error {
	token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to exchange google authorization code: %w", err)
	}
	return g.saveToken(token)
}

// Export upserts one all-day event per day with selected workouts and returns
// how many events were written.
func (g *GoogleExporter) Export(ctx context.Context, items []workout.PlannableItem, from, to calendar_date.CalendarDate) (int, error) {
	service, err := g.newService(ctx)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, e := range DayEvents(items, from, to) {
		event := &gcal.Event{
			Id:          googleEventID(e.Date),
			Summary:     e.Summary,
			Description: e.Description,
			Start:       &gcal.EventDateTime{Date: e.Date.String()},
			End:         &gcal.EventDateTime{Date: e.Date.AddDays(1).String()},
		}
		_, err := service.Events.Insert(g.calendarID, event).Context(ctx).Do()
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			log.Debugf("Event for %s already exists, updating", e.Date)
			_, err = service.Events.Update(g.calendarID, event.Id, event).Context(ctx).Do()
		}
		if err != nil {
			err := fmt.Errorf("unable to write event for %s to Google Calendar: %w", e.Date, err)
			log.Error(err)
			return written, err
		}
		written++
	}
	log.Infof("Exported %d day events to Google Calendar %s", written, g.calendarID)
	return written, nil
}

// googleEventID satisfies the base32hex alphabet Google requires for client ids.
func googleEventID(date calendar_date.CalendarDate) string {
	return strings.ReplaceAll(strings.TrimSuffix(DayUID(date), "@workout-planner"), "-", "")
}

func (g *GoogleExporter) prepareGoogleService(ctx context.Context) (*gcal.Service, error) {
	token, err := g.loadToken()
	if err != nil {
		return nil, err
	}
	if token == nil {
		log.Debug("google calendar is not authorized")
		return nil, ErrUnauthenticated
	}
	client := oauth2.NewClient(ctx, g.oauthConfig.TokenSource(ctx, token))
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to create Calendar client: %w", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}

func (g *GoogleExporter) loadToken() (*oauth2.Token, error) {
	path, err := homedir.Expand(g.tokenPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read google token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("unable to decode google token: %w", err)
	}
	return &token, nil
}

func (g *GoogleExporter) saveToken(token *oauth2.Token) error {
	path, err := homedir.Expand(g.tokenPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
