package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	netmail "net/mail"
	"strings"
	"time"

	"ms-scheduling/internal/events"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/mail"
	"ms-scheduling/internal/models"
)

// CommandName is the scheduled command that sends tomorrow's filming reminders.
const CommandName = "notifications:shooter-introduction-email"

const shootTimeLayout = "Mon 02/01/2006 03:04 PM"

//go:embed templates/*.html
var templateFS embed.FS

var introductionTemplate = template.Must(template.ParseFS(templateFS, "templates/shoot_introduction.html"))

type DBLayer interface {
	GetScheduledJobEventsStartingBetween(ctx context.Context, typeIDs []int64, from, to time.Time) ([]*models.Event, error)
	GetJobCrewEvents(ctx context.Context, jobID int64, typeIDs []int64) ([]*models.Event, error)
	GetUsersByRoleAndStates(ctx context.Context, roleID int64, stateIDs []int64) ([]*models.User, error)
}

// RunLock keeps replicas from running the same day twice.
type RunLock interface {
	Acquire(ctx context.Context, job string, day time.Time, owner string) (bool, error)
	Release(ctx context.Context, job string, day time.Time, owner string) error
}

type ShooterIntroduction struct {
	DB              DBLayer
	Mail            mail.Dispatcher
	Lock            RunLock
	Logger          *logger.Logger
	Location        *time.Location
	ErrorRecipients []string
	Owner           string
	Now             func() time.Time
}

// Summary counts the outcome of one run.
type Summary struct {
	Skipped bool
	Orders  int
	Sent    int
	Failed  int
}

func NewShooterIntroduction(db DBLayer, dispatcher mail.Dispatcher, lock RunLock, log *logger.Logger, loc *time.Location, errorRecipients []string, owner string) *ShooterIntroduction {
	if log == nil {
		log = logger.Discard()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ShooterIntroduction{
		DB:              db,
		Mail:            dispatcher,
		Lock:            lock,
		Logger:          log,
		Location:        loc,
		ErrorRecipients: errorRecipients,
		Owner:           owner,
		Now:             time.Now,
	}
}

// crewEventTypes is also the meet crew order.
func crewEventTypes() []int64 {
	return []int64{models.EventTypeProducer, models.EventTypeShoot, models.EventTypeAdditionalShooter}
}

// Run emails every order with a scheduled shoot in tomorrow's window. A failing order
// is reported to the error list and the run moves on to the next one.
func (s *ShooterIntroduction) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	now := s.Now()
	today := events.StartOfDay(now, s.Location)
	s.Logger.Info("NOTIFY", fmt.Sprintf("------- Start process of shooter introduction email on %s -------", today.Format("2006-01-02")))

	locked := false
	if s.Lock != nil {
		ok, err := s.Lock.Acquire(ctx, CommandName, today, s.Owner)
		switch {
		case err != nil:
			s.Logger.Warn("NOTIFY", fmt.Sprintf("run lock unavailable, continuing without it: %v", err))
		case !ok:
			s.Logger.Info("NOTIFY", "already handled today by another instance")
			summary.Skipped = true
			return summary, nil
		default:
			locked = true
		}
	}

	from, to := events.TomorrowWindow(now, s.Location)
	shoots, err := s.DB.GetScheduledJobEventsStartingBetween(ctx, []int64{models.EventTypeShoot}, from, to)
	if err != nil {
		if locked {
			_ = s.Lock.Release(ctx, CommandName, today, s.Owner)
		}
		return summary, fmt.Errorf("failed to load tomorrow's shoots: %w", err)
	}

	groups := events.GroupEventsByOrderID(shoots)
	if len(groups) == 0 {
		s.Logger.Info("NOTIFY", "No events found for tomorrow")
		return summary, nil
	}

	for _, group := range groups {
		summary.Orders++
		if err := s.processOrder(ctx, group); err != nil {
			summary.Failed++
			s.Logger.LogNotification(group.OrderID, fmt.Sprintf("failed: %v", err))
			s.sendErrorEmail(ctx, group.OrderID, err)
			continue
		}
		summary.Sent++
		s.Logger.LogNotification(group.OrderID, "shooter introduction queued")
	}
	return summary, nil
}

func (s *ShooterIntroduction) processOrder(ctx context.Context, group events.OrderEvents) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	job, err := s.BuildEmail(ctx, group)
	if err != nil {
		return err
	}
	return s.Mail.Dispatch(ctx, job)
}

type shootRow struct {
	Name    string
	Start   string
	End     string
	Address string
}

type introductionData struct {
	OrderName      string
	ContactName    string
	Shoots         []shootRow
	PrimaryCrew    *models.User
	MeetCrews      []*models.User
	AccountManager *models.User
}

// BuildEmail assembles the reminder for one order's shoots.
func (s *ShooterIntroduction) BuildEmail(ctx context.Context, group events.OrderEvents) (models.EmailJob, error) {
	if len(group.Events) == 0 {
		return models.EmailJob{}, fmt.Errorf("order #%d has no events", group.OrderID)
	}
	first := group.Events[0]
	order := first.Order()
	if order == nil {
		return models.EmailJob{}, fmt.Errorf("order #%d is not loaded", group.OrderID)
	}

	to := order.AllJobContactEmails()
	if len(to) == 0 {
		return models.EmailJob{}, fmt.Errorf("order #%d has no job contact email", group.OrderID)
	}

	cc, err := s.ccList(ctx, group.Events)
	if err != nil {
		return models.EmailJob{}, err
	}

	crews, err := s.crewsByEventType(ctx, first.OrderJob().ID)
	if err != nil {
		return models.EmailJob{}, err
	}

	data := introductionData{
		OrderName:      order.Name,
		ContactName:    first.OrderJob().ContactName,
		PrimaryCrew:    PrimaryCrew(crews),
		MeetCrews:      MeetCrews(crews, crewEventTypes()),
		AccountManager: order.AccountManager,
	}
	for _, e := range group.Events {
		data.Shoots = append(data.Shoots, shootRow{
			Name:    e.Name,
			Start:   e.From.In(s.Location).Format(shootTimeLayout),
			End:     e.To.In(s.Location).Format(shootTimeLayout),
			Address: e.Address,
		})
	}

	var body bytes.Buffer
	if err := introductionTemplate.Execute(&body, data); err != nil {
		return models.EmailJob{}, fmt.Errorf("failed to render introduction email: %w", err)
	}

	job := models.NewEmailJob(models.EmailKindShooterIntroduction, "FILMING REMINDER: "+order.Name, body.String(), to)
	job.CC = cc
	job.ReplyTo = replyTo(order.AccountManager)
	return job, nil
}

// ccList collects assignees, account manager, team leader and the production staff of the state in charge,
// in first-seen order without repeats.
func (s *ShooterIntroduction) ccList(ctx context.Context, list []*models.Event) ([]string, error) {
	var cc []string
	seen := make(map[string]bool)
	add := func(u *models.User) {
		if u == nil {
			return
		}
		email := strings.TrimSpace(u.Email)
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		cc = append(cc, email)
	}

	for _, e := range list {
		add(e.User)
		if order := e.Order(); order != nil {
			add(order.AccountManager)
			add(order.TeamLeader)
		}
		if e.State == nil {
			continue
		}
		productions, err := s.DB.GetUsersByRoleAndStates(ctx, models.RoleProduction, []int64{e.State.StateInCharge})
		if err != nil {
			return nil, fmt.Errorf("failed to load production staff: %w", err)
		}
		for _, u := range productions {
			add(u)
		}
	}
	return cc, nil
}

func (s *ShooterIntroduction) crewsByEventType(ctx context.Context, jobID int64) (map[int64][]*models.User, error) {
	crewEvents, err := s.DB.GetJobCrewEvents(ctx, jobID, crewEventTypes())
	if err != nil {
		return nil, fmt.Errorf("failed to load job crews: %w", err)
	}
	crews := make(map[int64][]*models.User)
	for _, e := range crewEvents {
		if e.User != nil {
			crews[e.EventTypeID] = append(crews[e.EventTypeID], e.User)
		}
	}
	return crews, nil
}

// PrimaryCrew is the last producer, else the last shooter, else nil.
func PrimaryCrew(crews map[int64][]*models.User) *models.User {
	if producers := crews[models.EventTypeProducer]; len(producers) > 0 {
		return producers[len(producers)-1]
	}
	if shooters := crews[models.EventTypeShoot]; len(shooters) > 0 {
		return shooters[len(shooters)-1]
	}
	return nil
}

// MeetCrews lists crew members by the given type order, each person once.
func MeetCrews(crews map[int64][]*models.User, typeOrder []int64) []*models.User {
	var out []*models.User
	seen := make(map[int64]bool)
	for _, typeID := range typeOrder {
		for _, u := range crews[typeID] {
			if u == nil || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			out = append(out, u)
		}
	}
	return out
}

func replyTo(am *models.User) string {
	if am == nil || strings.TrimSpace(am.Email) == "" {
		return ""
	}
	addr := netmail.Address{Name: am.FullName(), Address: strings.TrimSpace(am.Email)}
	return addr.String()
}

func (s *ShooterIntroduction) sendErrorEmail(ctx context.Context, orderID int64, cause error) {
	if len(s.ErrorRecipients) == 0 {
		s.Logger.Warn("NOTIFY", "no general error recipients configured")
		return
	}
	job := models.NewEmailJob(models.EmailKindNotificationError,
		fmt.Sprintf("Error occur when send shooter introduction email. order id #%d", orderID),
		cause.Error(), s.ErrorRecipients)
	if err := s.Mail.Dispatch(ctx, job); err != nil {
		s.Logger.Error("NOTIFY", fmt.Sprintf("failed to dispatch error email for order #%d: %v", orderID, err))
	}
}
