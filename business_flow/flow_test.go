package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boitata/app/services"
	"boitata/models"
	"boitata/queue"
	"boitata/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes. Methods the flows never call come from the
// embedded nil interface and panic if reached.

type fakeCampaignRepo struct {
	repository.CampaignRepository
	campaigns map[uint]*models.Campaign
}

func newFakeCampaignRepo(campaigns ...*models.Campaign) *fakeCampaignRepo {
	f := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{}}
	for _, c := range campaigns {
		f.campaigns[c.ID] = c
	}
	return f
}

func (f *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeCampaignRepo) ListActive(ctx context.Context) ([]*models.Campaign, error) {
	out := make([]*models.Campaign, 0, len(f.campaigns))
	for _, c := range f.campaigns {
		if c.Status == models.CampaignStatusActive || c.Status == models.CampaignStatusScheduled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) UpdateStatusIf(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	c, ok := f.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (f *fakeCampaignRepo) IncrementPerformance(ctx context.Context, id uint, delta models.CampaignPerformance) error {
	c, ok := f.campaigns[id]
	if !ok {
		return errors.New("campaign not found")
	}
	c.Performance.Posts += delta.Posts
	c.Performance.Views += delta.Views
	c.Performance.Clicks += delta.Clicks
	return nil
}

type fakeCreativeRepo struct {
	repository.CreativeRepository
	creatives []*models.Creative
}

func (f *fakeCreativeRepo) ByID(ctx context.Context, id uint) (*models.Creative, error) {
	for _, c := range f.creatives {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCreativeRepo) IncrementTimesPosted(ctx context.Context, id uint) error {
	for _, c := range f.creatives {
		if c.ID == id {
			c.Stats.TimesPosted++
		}
	}
	return nil
}

func (f *fakeCreativeRepo) ByIDs(ctx context.Context, ids []int64) ([]*models.Creative, error) {
	out := make([]*models.Creative, 0, len(ids))
	for _, c := range f.creatives {
		for _, id := range ids {
			if int64(c.ID) == id {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

type fakeRotationRepo struct {
	states   map[uint]*models.RotationState
	conflict bool
	saves    int
}

func newFakeRotationRepo() *fakeRotationRepo {
	return &fakeRotationRepo{states: map[uint]*models.RotationState{}}
}

func (f *fakeRotationRepo) ByCampaignID(ctx context.Context, campaignID uint) (*models.RotationState, error) {
	return f.states[campaignID], nil
}

func (f *fakeRotationRepo) Save(ctx context.Context, state *models.RotationState) error {
	if state.ID == 0 {
		state.ID = uint(len(f.states) + 1)
	}
	f.states[state.CampaignID] = state
	return nil
}

func (f *fakeRotationRepo) SaveIfVersion(ctx context.Context, state *models.RotationState) (bool, error) {
	if f.conflict {
		return false, nil
	}
	state.Version++
	f.states[state.CampaignID] = state
	f.saves++
	return true, nil
}

type fakeGroupRepo struct {
	repository.TelegramGroupRepository
	active []*models.TelegramGroup
}

func (f *fakeGroupRepo) ListActive(ctx context.Context) ([]*models.TelegramGroup, error) {
	return f.active, nil
}

func (f *fakeGroupRepo) ByChatID(ctx context.Context, chatID int64) (*models.TelegramGroup, error) {
	for _, g := range f.active {
		if g.ChatID == chatID {
			return g, nil
		}
	}
	return nil, nil
}

type fakePostRecordRepo struct {
	repository.PostRecordRepository
	records    []*models.PostRecord
	aggregated []uint
}

func (f *fakePostRecordRepo) Save(ctx context.Context, record *models.PostRecord) error {
	if record.ID == 0 {
		record.ID = uint(len(f.records) + 1)
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakePostRecordRepo) ListUnaggregated(ctx context.Context, limit int) ([]*models.PostRecord, error) {
	out := make([]*models.PostRecord, 0, len(f.records))
	for _, r := range f.records {
		if !contains(f.aggregated, r.ID) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePostRecordRepo) MarkAggregated(ctx context.Context, ids []uint) error {
	f.aggregated = append(f.aggregated, ids...)
	return nil
}

func contains(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type fakePurchaseRepo struct {
	repository.PurchaseRepository
	purchases     map[uint]*models.Purchase
	appended      []models.SentMessageBatch
	expired       []*models.Purchase
	notified      []uint
	failStatusFor uint
}

func newFakePurchaseRepo(purchases ...*models.Purchase) *fakePurchaseRepo {
	f := &fakePurchaseRepo{purchases: map[uint]*models.Purchase{}}
	for _, p := range purchases {
		f.purchases[p.ID] = p
	}
	return f
}

func (f *fakePurchaseRepo) ByID(ctx context.Context, id uint) (*models.Purchase, error) {
	return f.purchases[id], nil
}

func (f *fakePurchaseRepo) ByUUID(ctx context.Context, id string) (*models.Purchase, error) {
	for _, p := range f.purchases {
		if p.UUID.String() == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePurchaseRepo) Save(ctx context.Context, p *models.Purchase) error {
	if p.ID == 0 {
		p.ID = uint(len(f.purchases) + 1)
	}
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	f.purchases[p.ID] = p
	return nil
}

func (f *fakePurchaseRepo) UpdateStatusIf(ctx context.Context, id uint, from, to models.PurchaseStatus) (bool, error) {
	if id == f.failStatusFor {
		return false, errors.New("forced status failure")
	}
	p, ok := f.purchases[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakePurchaseRepo) AppendSentMessages(ctx context.Context, id uint, batch models.SentMessageBatch) error {
	f.appended = append(f.appended, batch)
	f.purchases[id].SentMessages = append(f.purchases[id].SentMessages, batch)
	return nil
}

func (f *fakePurchaseRepo) MarkDelivered(ctx context.Context, id uint, deliveredAt time.Time, expiresAt *time.Time) error {
	p := f.purchases[id]
	p.DeliveredAt = &deliveredAt
	p.ExpiresAt = expiresAt
	return nil
}

func (f *fakePurchaseRepo) ListExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]*models.Purchase, error) {
	return f.expired, nil
}

func (f *fakePurchaseRepo) MarkExpiryNotified(ctx context.Context, id uint) error {
	f.notified = append(f.notified, id)
	return nil
}

type fakeTxnRepo struct {
	repository.TransactionRepository
	txns map[uint]*models.Transaction
}

func newFakeTxnRepo(txns ...*models.Transaction) *fakeTxnRepo {
	f := &fakeTxnRepo{txns: map[uint]*models.Transaction{}}
	for _, t := range txns {
		f.txns[t.ID] = t
	}
	return f
}

func (f *fakeTxnRepo) Save(ctx context.Context, t *models.Transaction) error {
	if t.ID == 0 {
		t.ID = uint(len(f.txns) + 1)
	}
	f.txns[t.ID] = t
	return nil
}

func (f *fakeTxnRepo) ByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	for _, t := range f.txns {
		if t.ExternalID == externalID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTxnRepo) ByPurchaseID(ctx context.Context, purchaseID uint) (*models.Transaction, error) {
	for _, t := range f.txns {
		if t.PurchaseID == purchaseID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTxnRepo) MarkPaidIfPending(ctx context.Context, id uint, paidAt time.Time) (bool, error) {
	t, ok := f.txns[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = models.TransactionStatusPaid
	t.PaidAt = &paidAt
	return true, nil
}

func (f *fakeTxnRepo) MarkStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, reason *string) (bool, error) {
	t, ok := f.txns[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = status
	t.FailureReason = reason
	return true, nil
}

func (f *fakeTxnRepo) UpdateStatus(ctx context.Context, id uint, status models.TransactionStatus) error {
	t, ok := f.txns[id]
	if !ok {
		return errors.New("transaction not found")
	}
	t.Status = status
	return nil
}

type fakeBuyerRepo struct {
	repository.BuyerRepository
	buyers    map[uint]*models.Buyer
	statBumps []int64
}

func newFakeBuyerRepo() *fakeBuyerRepo {
	return &fakeBuyerRepo{buyers: map[uint]*models.Buyer{}}
}

func (f *fakeBuyerRepo) GetOrCreate(ctx context.Context, telegramUserID int64, displayName string) (*models.Buyer, error) {
	for _, b := range f.buyers {
		if b.TelegramUserID == telegramUserID {
			return b, nil
		}
	}
	b := &models.Buyer{
		ID:             uint(len(f.buyers) + 1),
		TelegramUserID: telegramUserID,
		DisplayName:    displayName,
	}
	f.buyers[b.ID] = b
	return b, nil
}

func (f *fakeBuyerRepo) IncrementStats(ctx context.Context, id uint, amountCents int64) error {
	f.statBumps = append(f.statBumps, amountCents)
	return nil
}

type fakeModelRepo struct {
	models map[uint]*models.ModelProfile
}

func newFakeModelRepo(profiles ...*models.ModelProfile) *fakeModelRepo {
	f := &fakeModelRepo{models: map[uint]*models.ModelProfile{}}
	for _, m := range profiles {
		f.models[m.ID] = m
	}
	return f
}

func (f *fakeModelRepo) ByID(ctx context.Context, id uint) (*models.ModelProfile, error) {
	return f.models[id], nil
}

func (f *fakeModelRepo) Save(ctx context.Context, profile *models.ModelProfile) error {
	f.models[profile.ID] = profile
	return nil
}

func (f *fakeModelRepo) ProductByID(ctx context.Context, productID uint) (*models.ModelProduct, error) {
	for _, m := range f.models {
		if p := m.ProductByID(productID); p != nil {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeModelRepo) SaveProduct(ctx context.Context, product *models.ModelProduct) error {
	return nil
}

// Recording enqueuers

type recordingEnqueuer struct {
	posts      []queue.PostJobPayload
	audits     []queue.AuditJobPayload
	deliveries []queue.DeliveryJobPayload
	failPosts  bool
}

func (r *recordingEnqueuer) EnqueuePost(ctx context.Context, payload queue.PostJobPayload) error {
	if r.failPosts {
		return errors.New("queue unavailable")
	}
	r.posts = append(r.posts, payload)
	return nil
}

func (r *recordingEnqueuer) EnqueueAudit(ctx context.Context, payload queue.AuditJobPayload) error {
	r.audits = append(r.audits, payload)
	return nil
}

func (r *recordingEnqueuer) EnqueueDelivery(ctx context.Context, payload queue.DeliveryJobPayload) error {
	r.deliveries = append(r.deliveries, payload)
	return nil
}

// fakeSender records outbound messages, satisfying both ContentSender and
// MessageDeleter. Message ids count up from 1.
type fakeSender struct {
	nextID   int
	texts    []string
	buttons  []string
	batches  [][]string
	deleted  []int
	sendErr  error
	textErr  error
}

func (f *fakeSender) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if f.textErr != nil {
		return 0, f.textErr
	}
	f.texts = append(f.texts, text)
	return f.id(), nil
}

func (f *fakeSender) SendTextWithButton(ctx context.Context, chatID int64, text, label, url string) (int, error) {
	f.buttons = append(f.buttons, label)
	return f.id(), nil
}

func (f *fakeSender) SendPhotoBatch(ctx context.Context, chatID int64, fileIDs []string) ([]int, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.batches = append(f.batches, fileIDs)
	ids := make([]int, len(fileIDs))
	for i := range ids {
		ids[i] = f.id()
	}
	return ids, nil
}

func (f *fakeSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

// fakeGateway is an in-memory PixGateway
type fakeGateway struct {
	inputs    []services.CreateChargeInput
	status    *services.PaymentStatus
	chargeErr error
}

func (f *fakeGateway) CreatePixCharge(ctx context.Context, in services.CreateChargeInput) (*services.PixCharge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.inputs = append(f.inputs, in)
	expires := time.Now().UTC().Add(30 * time.Minute)
	return &services.PixCharge{
		ExternalID:   fmt.Sprintf("pay_%d", len(f.inputs)),
		PixKey:       "pix-key",
		PixQRCode:    "qr-code",
		PixCopyPaste: "copy-paste",
		ExpiresAt:    &expires,
	}, nil
}

func (f *fakeGateway) GetPaymentStatus(ctx context.Context, externalID string) (*services.PaymentStatus, error) {
	if f.status != nil {
		return f.status, nil
	}
	return &services.PaymentStatus{ExternalID: externalID, Status: "pending"}, nil
}
