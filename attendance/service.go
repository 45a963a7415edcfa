package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/178inaba/attendance-sheet-bot/entity"
	"github.com/178inaba/attendance-sheet-bot/lock"
	"github.com/178inaba/attendance-sheet-bot/metrics"
	"github.com/178inaba/attendance-sheet-bot/repository"
	"github.com/178inaba/attendance-sheet-bot/sheet"
)

type MemberFinder interface {
	FindByKey(ctx context.Context, key string) (*entity.Member, error)
}

type BackendProvider interface {
	Backend(ctx context.Context) (sheet.Backend, error)
}

type Config struct {
	SpreadsheetID      string
	TemplateSheetID    int64
	Location           *time.Location
	ExplicitSheetCheck bool
	Defaults           Defaults
}

type Command struct {
	UserKey   string
	Overrides Overrides
}

// Receipt describes a recorded entry.
type Receipt struct {
	DateKey string
	Entry   entity.Entry
}

type Service struct {
	members  MemberFinder
	backends BackendProvider
	locker   lock.Locker
	metrics  *metrics.Metrics
	cfg      Config
	now      func() time.Time
}

func NewService(
	members MemberFinder,
	backends BackendProvider,
	locker lock.Locker,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		members:  members,
		backends: backends,
		locker:   locker,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Record appends the attendance entry of cmd.UserKey to today's day sheet.
// Every returned error is an *Error.
func (s *Service) Record(ctx context.Context, cmd Command) (r Receipt, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		s.metrics.Command(outcome, time.Since(start))
	}()

	m, err := s.members.FindByKey(ctx, cmd.UserKey)
	if errors.Is(err, repository.ErrSourceOpen) {
		log.Printf("Find member %q: %v.", cmd.UserKey, err)
		return Receipt{}, newError(KindRecordOpen, err)
	} else if err != nil {
		log.Printf("Find member %q: %v.", cmd.UserKey, err)
		return Receipt{}, newError(KindRecordRead, err)
	}
	if m == nil {
		return Receipt{}, newError(KindMemberNotFound, fmt.Errorf("no member %q", cmd.UserKey))
	}

	backend, err := s.backends.Backend(ctx)
	if err != nil {
		log.Printf("Get sheets backend: %v.", err)
		return Receipt{}, newError(KindCredentials, err)
	}

	// One date key for both resolution and append, even across midnight.
	dateKey := sheet.DateKey(s.now(), s.cfg.Location)

	unlock, err := s.locker.Lock(ctx, s.cfg.SpreadsheetID+":"+dateKey)
	if err != nil {
		log.Printf("Lock %q: %v.", dateKey, err)
		return Receipt{}, newError(KindSerial, err)
	}
	defer unlock()

	var opts []sheet.ResolverOption
	if s.cfg.ExplicitSheetCheck {
		opts = append(opts, sheet.WithExplicitCheck())
	}
	res, err := sheet.NewResolver(backend, s.cfg.SpreadsheetID, s.cfg.TemplateSheetID, opts...).Resolve(ctx, dateKey)
	if err != nil {
		s.metrics.Resolution(metrics.PathFailed)
		return Receipt{}, newError(KindSerial, err)
	}
	if res.Created {
		s.metrics.Resolution(metrics.PathCreated)
	} else {
		s.metrics.Resolution(metrics.PathExisting)
	}

	e := Assemble(res.Serial, *m, cmd.Overrides, s.cfg.Defaults)

	if err := sheet.NewWriter(backend, s.cfg.SpreadsheetID).Append(ctx, dateKey, e); err != nil {
		log.Printf("Append entry to %q: %v.", dateKey, err)
		return Receipt{}, newError(KindInsert, err)
	}

	log.Printf("Recorded %q as #%d on %q.", cmd.UserKey, e.Serial, dateKey)

	return Receipt{DateKey: dateKey, Entry: e}, nil
}
