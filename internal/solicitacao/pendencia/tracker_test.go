package pendencia

import (
	"context"
	"sync"
	"testing"
	"time"

	"beneficios_backend/internal/events"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/internal/solicitacao/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) count(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.EventName() == name {
			c++
		}
	}
	return c
}

func actor(t *testing.T, role string) domain.Actor {
	t.Helper()
	r, err := domain.ParseRole(role)
	require.NoError(t, err)
	return domain.Actor{ID: uuid.New(), Role: r}
}

type TrackerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	tracker  *Tracker
	request  domain.Request
	tecnico  domain.Actor
}

func (s *TrackerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.notifier = &recordingNotifier{}
	s.tracker = New(s.store, Config{Notifier: s.notifier, MaxRetries: 5})
	s.tecnico = actor(s.T(), "tecnico")

	s.request = domain.Request{
		ID:            uuid.New(),
		TipoBeneficio: domain.BeneficioCestaBasica,
		Status:        domain.StatusEmAnalise,
		TecnicoID:     s.tecnico.ID,
		Version:       1,
		CreatedAt:     time.Now(),
	}
	s.Require().NoError(s.store.CreateRequest(s.ctx, s.request))
}

func (s *TrackerSuite) TestOpenAndResolve() {
	id, err := s.tracker.Open(s.ctx, s.request.ID, "  comprovante de residência  ", s.tecnico)
	s.Require().NoError(err)

	blocking, err := s.tracker.HasBlocking(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.True(blocking)

	s.Require().NoError(s.tracker.Resolve(s.ctx, id, s.tecnico, "entregue"))

	p, err := s.store.LoadPendency(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.PendenciaResolvida, p.Status)
	s.Equal("comprovante de residência", p.Descricao)
	s.Equal("entregue", p.ObservacaoResolucao)
	s.Equal(2, p.Version)

	blocking, err = s.tracker.HasBlocking(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.False(blocking)
}

func (s *TrackerSuite) TestResolveTwiceIsIdempotent() {
	id, err := s.tracker.Open(s.ctx, s.request.ID, "laudo médico", s.tecnico)
	s.Require().NoError(err)

	s.Require().NoError(s.tracker.Resolve(s.ctx, id, s.tecnico, "ok"))
	s.Require().NoError(s.tracker.Resolve(s.ctx, id, s.tecnico, "ok de novo"))

	p, err := s.store.LoadPendency(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(2, p.Version, "second resolve must not write")
	s.Equal("ok", p.ObservacaoResolucao)
	s.Equal(1, s.notifier.count("pendencia.resolved"))
}

func (s *TrackerSuite) TestConcurrentResolveIsAppliedOnce() {
	id, err := s.tracker.Open(s.ctx, s.request.ID, "documento", s.tecnico)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.tracker.Resolve(s.ctx, id, s.tecnico, "")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	s.Equal(1, s.notifier.count("pendencia.resolved"))
}

func (s *TrackerSuite) TestStartResolutionStillBlocks() {
	id, err := s.tracker.Open(s.ctx, s.request.ID, "visita domiciliar", s.tecnico)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.StartResolution(s.ctx, id, s.tecnico))
	s.Require().NoError(s.tracker.StartResolution(s.ctx, id, s.tecnico))

	blocking, err := s.tracker.Blocking(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Require().Len(blocking, 1)
	s.Equal(domain.PendenciaEmResolucao, blocking[0].Status)
}

func (s *TrackerSuite) TestCancelledPendencyCannotBeResolved() {
	id, err := s.tracker.Open(s.ctx, s.request.ID, "duplicada", s.tecnico)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.Cancel(s.ctx, id, s.tecnico, "aberta por engano"))

	s.Error(s.tracker.Resolve(s.ctx, id, s.tecnico, ""))
}

func (s *TrackerSuite) TestOpenInvalidatesTheRequestVersion() {
	before, err := s.store.LoadRequest(s.ctx, s.request.ID)
	s.Require().NoError(err)

	_, err = s.tracker.Open(s.ctx, s.request.ID, "comprovante de renda", s.tecnico)
	s.Require().NoError(err)

	after, err := s.store.LoadRequest(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(before.Version+1, after.Version)
	s.Equal(domain.StatusEmAnalise, after.Status)

	moved := before
	moved.Status = domain.StatusAprovada
	err = s.store.SaveRequest(s.ctx, moved, before.Version)
	s.ErrorIs(err, domain.ErrConcurrentModification, "a transition checked before the pendency existed must not commit")
}

func (s *TrackerSuite) TestOpenRefusedOnTerminalRequest() {
	closed := s.request
	closed.ID = uuid.New()
	closed.Status = domain.StatusCancelada
	s.Require().NoError(s.store.CreateRequest(s.ctx, closed))

	_, err := s.tracker.Open(s.ctx, closed.ID, "qualquer", s.tecnico)
	s.ErrorIs(err, domain.ErrInvalidTransition)
}

func (s *TrackerSuite) TestAuditorIsReadOnly() {
	_, err := s.tracker.Open(s.ctx, s.request.ID, "x", actor(s.T(), "auditor"))
	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *TrackerSuite) TestOpenRequiresDescription() {
	_, err := s.tracker.Open(s.ctx, s.request.ID, "   ", s.tecnico)
	s.Error(err)
	assert.Equal(s.T(), 0, s.notifier.count("pendencia.opened"))
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}
