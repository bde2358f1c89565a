package app

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

type memTxKey struct{}

type claimKey struct {
	resourceID string
	date       string
	start      domain.ClockTime
}

type memData struct {
	resources    map[string]domain.Resource
	templates    map[string]domain.AvailabilityTemplate
	closures     map[string]domain.Closure
	reservations map[string]domain.Reservation
	claims       map[claimKey]string
	intents      map[string]domain.PaymentIntent
	events       map[string]domain.WebhookEvent
	reviews      []domain.ReviewItem
	refunds      map[string]domain.RefundRequest
}

func (d memData) clone() memData {
	return memData{
		resources:    maps.Clone(d.resources),
		templates:    maps.Clone(d.templates),
		closures:     maps.Clone(d.closures),
		reservations: maps.Clone(d.reservations),
		claims:       maps.Clone(d.claims),
		intents:      maps.Clone(d.intents),
		events:       maps.Clone(d.events),
		reviews:      slices.Clone(d.reviews),
		refunds:      maps.Clone(d.refunds),
	}
}

// memStore implements every repository the engine needs. Transactions are
// fully serialized and roll back to a snapshot on error.
type memStore struct {
	mu sync.Mutex
	memData

	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		memData: memData{
			resources:    map[string]domain.Resource{},
			templates:    map[string]domain.AvailabilityTemplate{},
			closures:     map[string]domain.Closure{},
			reservations: map[string]domain.Reservation{},
			claims:       map[claimKey]string{},
			intents:      map[string]domain.PaymentIntent{},
			events:       map[string]domain.WebhookEvent{},
			refunds:      map[string]domain.RefundRequest{},
		},
		fail: map[string]error{},
	}
}

func (s *memStore) failWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.memData.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.memData = snapshot
		return err
	}
	return nil
}

// guard locks the store unless the caller is already inside WithTx.
func (s *memStore) guard(ctx context.Context, op string) (func(), error) {
	unlock := func() {}
	if ctx.Value(memTxKey{}) == nil {
		s.mu.Lock()
		unlock = s.mu.Unlock
	}
	if err := s.fail[op]; err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

// catalog

func (s *memStore) addResource(r domain.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.ID] = r
}

func (s *memStore) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	unlock, err := s.guard(ctx, "GetResource")
	if err != nil {
		return domain.Resource{}, err
	}
	defer unlock()
	r, ok := s.resources[id]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return r, nil
}

func (s *memStore) ListTemplatesInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.AvailabilityTemplate, error) {
	unlock, err := s.guard(ctx, "ListTemplatesInRange")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.AvailabilityTemplate
	for _, t := range s.templates {
		if t.ResourceID == resourceID && !t.To.Before(from) && !t.From.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) ListClosuresInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.Closure, error) {
	unlock, err := s.guard(ctx, "ListClosuresInRange")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.Closure
	for _, c := range s.closures {
		if c.Applies(resourceID) && !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListClaimsInRange(ctx context.Context, resourceID string, from, to time.Time) ([]domain.SlotClaim, error) {
	unlock, err := s.guard(ctx, "ListClaimsInRange")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.SlotClaim
	for k, reservationID := range s.claims {
		date, _ := domain.ParseDate(k.date)
		if k.resourceID == resourceID && !date.Before(from) && !date.After(to) {
			out = append(out, domain.SlotClaim{ResourceID: k.resourceID, Date: date, StartTime: k.start, ReservationID: reservationID})
		}
	}
	return out, nil
}

// reservations

func (s *memStore) CreateReservation(ctx context.Context, r domain.Reservation) error {
	unlock, err := s.guard(ctx, "CreateReservation")
	if err != nil {
		return err
	}
	defer unlock()
	claims := r.Claims()
	for _, c := range claims {
		if _, taken := s.claims[claimKey{c.ResourceID, domain.FormatDate(c.Date), c.StartTime}]; taken {
			return domain.ErrSlotTaken
		}
	}
	for _, c := range claims {
		s.claims[claimKey{c.ResourceID, domain.FormatDate(c.Date), c.StartTime}] = r.ID
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *memStore) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	unlock, err := s.guard(ctx, "GetReservation")
	if err != nil {
		return domain.Reservation{}, err
	}
	defer unlock()
	r, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (s *memStore) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return s.GetReservation(ctx, id)
}

func (s *memStore) UpdateReservation(ctx context.Context, r domain.Reservation) error {
	unlock, err := s.guard(ctx, "UpdateReservation")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return domain.ErrReservationNotFound
	}
	s.reservations[r.ID] = r
	return nil
}

func (s *memStore) ReleaseSlots(ctx context.Context, reservationID string) error {
	unlock, err := s.guard(ctx, "ReleaseSlots")
	if err != nil {
		return err
	}
	defer unlock()
	maps.DeleteFunc(s.claims, func(_ claimKey, id string) bool { return id == reservationID })
	return nil
}

func (s *memStore) CompleteElapsed(ctx context.Context, today time.Time, now domain.ClockTime, at time.Time) (int64, error) {
	unlock, err := s.guard(ctx, "CompleteElapsed")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, r := range s.reservations {
		if r.Status != domain.ReservationConfirmed {
			continue
		}
		if r.Date.Before(today) || (r.Date.Equal(today) && r.EndTime() <= now) {
			r.Status = domain.ReservationCompleted
			r.UpdatedAt = at
			s.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateRefundRequest(ctx context.Context, req domain.RefundRequest) (bool, error) {
	unlock, err := s.guard(ctx, "CreateRefundRequest")
	if err != nil {
		return false, err
	}
	defer unlock()
	if _, ok := s.refunds[req.ReservationID]; ok {
		return false, nil
	}
	s.refunds[req.ReservationID] = req
	return true, nil
}

func (s *memStore) CompleteRefundRequest(ctx context.Context, reservationID string, at time.Time) error {
	unlock, err := s.guard(ctx, "CompleteRefundRequest")
	if err != nil {
		return err
	}
	defer unlock()
	if req, ok := s.refunds[reservationID]; ok {
		req.Status = domain.RefundCompleted
		req.UpdatedAt = at
		s.refunds[reservationID] = req
	}
	return nil
}

// payments

func (s *memStore) CreateIntent(ctx context.Context, intent domain.PaymentIntent) error {
	unlock, err := s.guard(ctx, "CreateIntent")
	if err != nil {
		return err
	}
	defer unlock()
	for _, existing := range s.intents {
		if existing.ReservationID == intent.ReservationID {
			return domain.ErrIntentExists
		}
	}
	s.intents[intent.ID] = intent
	return nil
}

func (s *memStore) GetIntentForUpdate(ctx context.Context, id string) (domain.PaymentIntent, error) {
	unlock, err := s.guard(ctx, "GetIntentForUpdate")
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	defer unlock()
	intent, ok := s.intents[id]
	if !ok {
		return domain.PaymentIntent{}, domain.ErrIntentNotFound
	}
	return intent, nil
}

func (s *memStore) GetIntentByReservationForUpdate(ctx context.Context, reservationID string) (domain.PaymentIntent, error) {
	unlock, err := s.guard(ctx, "GetIntentByReservationForUpdate")
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	defer unlock()
	for _, intent := range s.intents {
		if intent.ReservationID == reservationID {
			return intent, nil
		}
	}
	return domain.PaymentIntent{}, domain.ErrIntentNotFound
}

func (s *memStore) FindIntentByProviderRefForUpdate(ctx context.Context, method domain.PaymentMethod, ref string) (*domain.PaymentIntent, error) {
	unlock, err := s.guard(ctx, "FindIntentByProviderRefForUpdate")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, intent := range s.intents {
		if intent.Method == method && intent.ProviderRef != nil && *intent.ProviderRef == ref {
			return &intent, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindIntentByMerchantRefForUpdate(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	unlock, err := s.guard(ctx, "FindIntentByMerchantRefForUpdate")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, intent := range s.intents {
		if intent.MerchantRef == ref {
			return &intent, nil
		}
	}
	return nil, nil
}

func (s *memStore) AttachProviderRef(ctx context.Context, intentID, ref string, at time.Time) error {
	unlock, err := s.guard(ctx, "AttachProviderRef")
	if err != nil {
		return err
	}
	defer unlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return domain.ErrIntentNotFound
	}
	intent.ProviderRef = &ref
	intent.UpdatedAt = at
	s.intents[intentID] = intent
	return nil
}

func (s *memStore) TransitionIntent(ctx context.Context, id string, from, to domain.IntentStatus, settledBy *string, at time.Time) (bool, error) {
	unlock, err := s.guard(ctx, "TransitionIntent")
	if err != nil {
		return false, err
	}
	defer unlock()
	intent, ok := s.intents[id]
	if !ok || intent.Status != from {
		return false, nil
	}
	intent.Status = to
	intent.NeedsReview = false
	intent.UpdatedAt = at
	if settledBy != nil {
		intent.SettledBy = settledBy
	}
	s.intents[id] = intent
	return true, nil
}

func (s *memStore) FlagIntentForReview(ctx context.Context, id string, at time.Time) error {
	unlock, err := s.guard(ctx, "FlagIntentForReview")
	if err != nil {
		return err
	}
	defer unlock()
	intent, ok := s.intents[id]
	if !ok {
		return domain.ErrIntentNotFound
	}
	intent.NeedsReview = true
	intent.UpdatedAt = at
	s.intents[id] = intent
	return nil
}

func (s *memStore) RecordWebhookEvent(ctx context.Context, ev domain.WebhookEvent) (bool, error) {
	unlock, err := s.guard(ctx, "RecordWebhookEvent")
	if err != nil {
		return false, err
	}
	defer unlock()
	key := ev.Provider + ":" + ev.EventRef
	if _, ok := s.events[key]; ok {
		return false, nil
	}
	s.events[key] = ev
	return true, nil
}

func (s *memStore) AddReviewItem(ctx context.Context, item domain.ReviewItem) error {
	unlock, err := s.guard(ctx, "AddReviewItem")
	if err != nil {
		return err
	}
	defer unlock()
	s.reviews = append(s.reviews, item)
	return nil
}

func (s *memStore) AddReviewItemOnce(ctx context.Context, item domain.ReviewItem) (bool, error) {
	unlock, err := s.guard(ctx, "AddReviewItemOnce")
	if err != nil {
		return false, err
	}
	defer unlock()
	if item.Kind == domain.ReviewSignatureFailure {
		for _, existing := range s.reviews {
			if existing.Kind == item.Kind && existing.Reference == item.Reference && existing.ResolvedAt == nil {
				return false, nil
			}
		}
	}
	s.reviews = append(s.reviews, item)
	return true, nil
}

func (s *memStore) DismissReviewItem(ctx context.Context, id string, at time.Time) error {
	unlock, err := s.guard(ctx, "DismissReviewItem")
	if err != nil {
		return err
	}
	defer unlock()
	for i, item := range s.reviews {
		if item.ID == id && item.IntentID == nil && item.ResolvedAt == nil {
			resolved := at
			s.reviews[i].ResolvedAt = &resolved
			return nil
		}
	}
	return domain.ErrReviewItemNotFound
}

func (s *memStore) ListOpenReviewItems(ctx context.Context) ([]domain.ReviewItem, error) {
	unlock, err := s.guard(ctx, "ListOpenReviewItems")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.ReviewItem
	for _, item := range s.reviews {
		if item.ResolvedAt == nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) ResolveReviewItems(ctx context.Context, intentID string, at time.Time) error {
	unlock, err := s.guard(ctx, "ResolveReviewItems")
	if err != nil {
		return err
	}
	defer unlock()
	for i, item := range s.reviews {
		if item.IntentID != nil && *item.IntentID == intentID && item.ResolvedAt == nil {
			resolved := at
			s.reviews[i].ResolvedAt = &resolved
		}
	}
	return nil
}

// closures

func (s *memStore) CreateClosure(ctx context.Context, c domain.Closure) error {
	unlock, err := s.guard(ctx, "CreateClosure")
	if err != nil {
		return err
	}
	defer unlock()
	for _, existing := range s.closures {
		if existing.Date.Equal(c.Date) && sameScope(existing.ResourceID, c.ResourceID) {
			return domain.ErrClosureExists
		}
	}
	s.closures[c.ID] = c
	return nil
}

func sameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *memStore) DeleteClosure(ctx context.Context, id string) error {
	unlock, err := s.guard(ctx, "DeleteClosure")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.closures[id]; !ok {
		return domain.ErrClosureNotFound
	}
	delete(s.closures, id)
	return nil
}

func (s *memStore) ListClosures(ctx context.Context, from, to time.Time) ([]domain.Closure, error) {
	unlock, err := s.guard(ctx, "ListClosures")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.Closure
	for _, c := range s.closures {
		if !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListLiveReservationsOn(ctx context.Context, date time.Time, resourceID *string) ([]domain.Reservation, error) {
	unlock, err := s.guard(ctx, "ListLiveReservationsOn")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.Reservation
	for _, r := range s.reservations {
		if !r.Status.Live() || !r.Date.Equal(date) {
			continue
		}
		if resourceID != nil && r.ResourceID != *resourceID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// templates

func (s *memStore) CreateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error {
	unlock, err := s.guard(ctx, "CreateTemplate")
	if err != nil {
		return err
	}
	defer unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *memStore) UpdateTemplate(ctx context.Context, t domain.AvailabilityTemplate) error {
	unlock, err := s.guard(ctx, "UpdateTemplate")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.templates[t.ID]; !ok {
		return domain.ErrTemplateNotFound
	}
	s.templates[t.ID] = t
	return nil
}

func (s *memStore) DeleteTemplate(ctx context.Context, id string) error {
	unlock, err := s.guard(ctx, "DeleteTemplate")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.templates[id]; !ok {
		return domain.ErrTemplateNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *memStore) GetTemplate(ctx context.Context, id string) (domain.AvailabilityTemplate, error) {
	unlock, err := s.guard(ctx, "GetTemplate")
	if err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	defer unlock()
	t, ok := s.templates[id]
	if !ok {
		return domain.AvailabilityTemplate{}, domain.ErrTemplateNotFound
	}
	return t, nil
}

func (s *memStore) ListTemplates(ctx context.Context, resourceID string) ([]domain.AvailabilityTemplate, error) {
	unlock, err := s.guard(ctx, "ListTemplates")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []domain.AvailabilityTemplate
	for _, t := range s.templates {
		if t.ResourceID == resourceID {
			out = append(out, t)
		}
	}
	return out, nil
}

// snapshot helpers for assertions

func (s *memStore) reservation(id string) domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id]
}

func (s *memStore) intent(id string) domain.PaymentIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[id]
}

func (s *memStore) refundFor(reservationID string) (domain.RefundRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refunds[reservationID]
	return r, ok
}

func (s *memStore) counts() (reservations, intents, claims int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations), len(s.intents), len(s.claims)
}

func (s *memStore) openReviews() []domain.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReviewItem
	for _, item := range s.reviews {
		if item.ResolvedAt == nil {
			out = append(out, item)
		}
	}
	return out
}
