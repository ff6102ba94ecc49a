package promo

import (
	"testing"
	"time"

	"booking-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) // понедельник

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func activePromo() models.PromoCode {
	return models.PromoCode{
		Code:       "SPRING10",
		Type:       models.PromoTypePercentage,
		Scope:      models.PromoScopeGlobal,
		Value:      10,
		Status:     models.PromoStatusActive,
		ValidFrom:  now.AddDate(0, -1, 0),
		ValidUntil: now.AddDate(0, 1, 0),
	}
}

func booking() BookingDetails {
	start := 10 * 60
	return BookingDetails{
		Amount:        1000,
		CategoryID:    "meeting-rooms",
		SpaceID:       "space-1",
		LocationID:    "blr",
		Date:          now,
		StartMinutes:  &start,
		DurationHours: 2,
		HourlyRate:    500,
		Quantity:      1,
	}
}

func TestEvaluate_Eligible(t *testing.T) {
	v := Evaluate(activePromo(), "u1", booking(), now)
	assert.True(t, v.Eligible)
	assert.Empty(t, v.Reason)
}

func TestEvaluate_Validity(t *testing.T) {
	deleted := activePromo()
	deletedAt := now.Add(-time.Hour)
	deleted.DeletedAt = &deletedAt
	assert.Equal(t, ReasonInvalid, Evaluate(deleted, "u1", booking(), now).Reason)

	expired := activePromo()
	expired.ValidUntil = now.Add(-time.Minute)
	expired.UsageLimit = intPtr(1)
	expired.CurrentUsage = 1
	assert.Equal(t, ReasonExpired, Evaluate(expired, "u1", booking(), now).Reason, "expired wins over exhausted")

	exhausted := activePromo()
	exhausted.UsageLimit = intPtr(3)
	exhausted.CurrentUsage = 3
	pausedAt := now
	exhausted.PausedAt = &pausedAt
	assert.Equal(t, ReasonExhausted, Evaluate(exhausted, "u1", booking(), now).Reason, "exhausted wins over paused")

	paused, err := Pause(activePromo(), "fraud check", now)
	require.NoError(t, err)
	assert.Equal(t, ReasonInactive, Evaluate(paused, "u1", booking(), now).Reason)

	early := activePromo()
	early.ValidFrom = now.Add(time.Hour)
	assert.Equal(t, ReasonInactive, Evaluate(early, "u1", booking(), now).Reason)

	// кешированный статус устарел: сверка на лету
	stale := activePromo()
	stale.Status = models.PromoStatusExpired
	assert.True(t, Evaluate(stale, "u1", booking(), now).Eligible)
}

func TestEvaluate_UserChecks(t *testing.T) {
	p := activePromo()
	p.Restrictions.ApplicableUsers = []string{"vip"}
	assert.Equal(t, ReasonUserNotEligible, Evaluate(p, "u1", booking(), now).Reason)
	assert.True(t, Evaluate(p, "vip", booking(), now).Eligible)

	p = activePromo()
	p.Restrictions.ExcludedUsers = []string{"u1"}
	assert.Equal(t, ReasonUserExcluded, Evaluate(p, "u1", booking(), now).Reason)

	p = activePromo()
	p.Restrictions.MaxUsesPerUser = intPtr(2)
	p.UsageHistory = []models.UsageRecord{
		{UserID: "u1", UsedAt: now.AddDate(0, 0, -10)},
		{UserID: "u2", UsedAt: now.AddDate(0, 0, -9)},
		{UserID: "u1", UsedAt: now.AddDate(0, 0, -8)},
	}
	assert.Equal(t, ReasonUserLimitExceeded, Evaluate(p, "u1", booking(), now).Reason)
	assert.True(t, Evaluate(p, "u2", booking(), now).Eligible)
}

func TestEvaluate_Cooldown(t *testing.T) {
	p := activePromo()
	p.Restrictions.CooldownPeriodHours = floatPtr(24)
	p.UsageHistory = []models.UsageRecord{
		{UserID: "u1", UsedAt: now.Add(-48 * time.Hour)},
		{UserID: "u1", UsedAt: now.Add(-23 * time.Hour)},
	}
	assert.Equal(t, ReasonCooldownActive, Evaluate(p, "u1", booking(), now).Reason)
	assert.True(t, Evaluate(p, "u1", booking(), now.Add(2*time.Hour)).Eligible)
	assert.True(t, Evaluate(p, "u2", booking(), now).Eligible)
}

func TestEvaluate_BookingChecks(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *models.PromoCode, b *BookingDetails)
		want   Reason
	}{
		{"min order", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.MinOrderAmount = int64Ptr(5000) }, ReasonMinOrderNotMet},
		{"max order", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.MaxOrderAmount = int64Ptr(999) }, ReasonMaxOrderExceeded},
		{"category allow", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ApplicableCategories = []string{"desks"} }, ReasonCategoryNotApplicable},
		{"category deny", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ExcludedCategories = []string{"meeting-rooms"} }, ReasonCategoryExcluded},
		{"space allow", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ApplicableSpaces = []string{"space-2"} }, ReasonSpaceNotApplicable},
		{"space deny", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ExcludedSpaces = []string{"space-1"} }, ReasonSpaceExcluded},
		{"location allow", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ApplicableLocations = []string{"del"} }, ReasonLocationNotApplicable},
		{"location deny", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.ExcludedLocations = []string{"blr"} }, ReasonLocationExcluded},
		{"day", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.AllowedDaysOfWeek = []int{0, 6} }, ReasonDayNotApplicable},
		{"min duration", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.MinBookingDuration = floatPtr(3) }, ReasonMinDurationNotMet},
		{"max duration", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.MaxBookingDuration = floatPtr(1.5) }, ReasonMaxDurationExceeded},
		{"time slot", func(p *models.PromoCode, b *BookingDetails) {
			p.Restrictions.AllowedTimeSlots = []models.TimeSlot{{Start: "18:00", End: "22:00"}}
		}, ReasonTimeSlotNotApplicable},
		{"daily limit", func(p *models.PromoCode, b *BookingDetails) {
			p.Restrictions.MaxUsesPerDay = intPtr(1)
			p.UsageHistory = []models.UsageRecord{{UserID: "other", UsedAt: now.Add(-time.Hour)}}
		}, ReasonDailyLimitExceeded},
		{"first booking", func(p *models.PromoCode, b *BookingDetails) { p.Scope = models.PromoScopeFirstTimeUser }, ReasonFirstBookingOnly},
		{"new users", func(p *models.PromoCode, b *BookingDetails) { p.Restrictions.NewUsersOnly = true }, ReasonNewUsersOnly},
		{"platform stacking", func(p *models.PromoCode, b *BookingDetails) { b.PlatformDiscountApplied = true }, ReasonStackingNotAllowed},
		{"space stacking", func(p *models.PromoCode, b *BookingDetails) { b.SpaceDiscountApplied = true }, ReasonStackingNotAllowed},
		{"promo stacking", func(p *models.PromoCode, b *BookingDetails) {
			p.StackingRules.CanStackWithOtherPromos = true
			p.StackingRules.DeniedCodes = []string{"OTHER"}
			b.OtherPromoCodes = []string{"other"}
		}, ReasonStackingNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := activePromo()
			b := booking()
			tc.mutate(&p, &b)
			assert.Equal(t, tc.want, Evaluate(p, "u1", b, now).Reason)
		})
	}
}

func TestEvaluate_OrderIsStrict(t *testing.T) {
	p := activePromo()
	p.Restrictions.ExcludedUsers = []string{"u1"}
	p.Restrictions.MaxBookingDuration = floatPtr(1)

	b := booking()
	b.DurationHours = 5
	assert.Equal(t, ReasonUserExcluded, Evaluate(p, "u1", b, now).Reason)
}

func TestEvaluate_Idempotent(t *testing.T) {
	p := activePromo()
	p.UsageLimit = intPtr(1)
	p.CurrentUsage = 1
	first := Evaluate(p, "u1", booking(), now)
	second := Evaluate(p, "u1", booking(), now)
	assert.Equal(t, first, second)
	assert.Equal(t, models.PromoStatusActive, p.Status, "evaluation must not mutate the input")
}

func TestCalculate(t *testing.T) {
	b := booking()

	p := activePromo()
	assert.Equal(t, Discount{Amount: 100, FinalAmount: 900}, Calculate(p, 1000, b))

	p = activePromo()
	p.Type = models.PromoTypeFixedAmount
	p.Value = 100
	p.Restrictions.MaxDiscountAmount = int64Ptr(50)
	assert.Equal(t, Discount{Amount: 50, FinalAmount: 30}, Calculate(p, 80, b))

	p.Restrictions.MaxDiscountAmount = nil
	assert.Equal(t, Discount{Amount: 80, FinalAmount: 0}, Calculate(p, 80, b))

	p = activePromo()
	p.Type = models.PromoTypeFreeHours
	p.Value = 1
	assert.Equal(t, Discount{Amount: 500, FinalAmount: 500}, Calculate(p, 1000, b))
	p.Value = 5
	assert.Equal(t, Discount{Amount: 1000, FinalAmount: 0}, Calculate(p, 1000, b))
	noRate := b
	noRate.HourlyRate = 0
	assert.Equal(t, Discount{Amount: 0, FinalAmount: 1000}, Calculate(p, 1000, noRate))

	p = activePromo()
	p.Type = models.PromoTypeBuyOneGetOne
	assert.Equal(t, Discount{Amount: 0, FinalAmount: 1001}, Calculate(p, 1001, b))
	pair := b
	pair.Quantity = 2
	assert.Equal(t, Discount{Amount: 501, FinalAmount: 500}, Calculate(p, 1001, pair))

	p = activePromo()
	p.Value = 12.5
	assert.Equal(t, Discount{Amount: 13, FinalAmount: 87}, Calculate(p, 100, b), "round half up")
}

func TestCalculate_NeverExceedsOriginal(t *testing.T) {
	b := booking()
	b.Quantity = 3
	for _, typ := range []models.PromoType{
		models.PromoTypePercentage, models.PromoTypeFixedAmount,
		models.PromoTypeFreeHours, models.PromoTypeBuyOneGetOne,
	} {
		for _, amount := range []int64{0, 1, 7, 99, 1000, 123457} {
			p := activePromo()
			p.Type = typ
			p.Value = 100
			d := Calculate(p, amount, b)
			assert.LessOrEqual(t, d.Amount, amount, "%s %d", typ, amount)
			assert.GreaterOrEqual(t, d.FinalAmount, int64(0), "%s %d", typ, amount)
			assert.Equal(t, amount, d.Amount+d.FinalAmount, "%s %d", typ, amount)
		}
	}
}

func TestRecordSuccess(t *testing.T) {
	p := activePromo()
	p.UsageLimit = intPtr(2)
	p.Analytics.FailedUses = 2
	p.Analytics.TotalAttempts = 2
	p.Analytics.FailureReasons = map[string]int64{"EXPIRED": 2}

	next := RecordSuccess(p, models.UsageRecord{UserID: "u1", BookingID: "b1", DiscountAmount: 100, OriginalAmount: 1000, FinalAmount: 900}, now)
	assert.Equal(t, 1, next.CurrentUsage)
	require.Len(t, next.UsageHistory, 1)
	assert.Equal(t, now, next.UsageHistory[0].UsedAt)
	require.NotNil(t, next.LastUsedAt)
	assert.Equal(t, int64(1), next.Analytics.SuccessfulUses)
	assert.Equal(t, int64(3), next.Analytics.TotalAttempts)
	assert.InDelta(t, 100.0/3.0, next.Analytics.ConversionRate, 1e-9)
	assert.Equal(t, models.PromoStatusActive, next.Status)

	final := RecordSuccess(next, models.UsageRecord{UserID: "u2", DiscountAmount: 50, FinalAmount: 450}, now)
	assert.Equal(t, models.PromoStatusExhausted, final.Status)
	assert.Equal(t, int64(150), final.Analytics.TotalDiscountGiven)
	assert.Equal(t, int64(1350), final.Analytics.TotalRevenueGenerated)
	assert.InDelta(t, 75, final.Analytics.AverageDiscountAmount, 1e-9)

	assert.Zero(t, p.CurrentUsage, "input must not be modified")
	assert.Empty(t, p.UsageHistory)
	assert.Len(t, next.UsageHistory, 1)
}

func TestRecordFailure(t *testing.T) {
	p := activePromo()
	p.Analytics.FailureReasons = map[string]int64{}
	next := RecordFailure(p, ReasonMinOrderNotMet, now)
	next = RecordFailure(next, ReasonMinOrderNotMet, now)
	next = RecordSuccess(next, models.UsageRecord{UserID: "u1", DiscountAmount: 10}, now)

	assert.Equal(t, int64(2), next.Analytics.FailedUses)
	assert.Equal(t, int64(3), next.Analytics.TotalAttempts)
	assert.Equal(t, int64(2), next.Analytics.FailureReasons["MIN_ORDER_NOT_MET"])
	assert.InDelta(t, 100.0/3.0, next.Analytics.ConversionRate, 1e-9)
	assert.Empty(t, p.Analytics.FailureReasons)
}

func TestPauseResume(t *testing.T) {
	p := activePromo()
	paused, err := Pause(p, "maintenance", now)
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusPaused, paused.Status)
	assert.Equal(t, "maintenance", paused.PauseReason)

	_, err = Pause(paused, "again", now)
	assert.ErrorIs(t, err, ErrAlreadyPaused)

	resumed, err := Resume(paused, now)
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)

	_, err = Resume(resumed, now)
	assert.ErrorIs(t, err, ErrNotPaused)

	// после окна действия resume выводит expired, а не active
	late, err := Resume(paused, p.ValidUntil.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusExpired, late.Status)
}

func TestResume_LimitReachedWhilePaused(t *testing.T) {
	p := activePromo()
	p.UsageLimit = intPtr(5)
	p.CurrentUsage = 3

	paused, err := Pause(p, "review", now)
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusPaused, paused.Status)

	// лимит снижен, пока код на паузе
	paused.UsageLimit = intPtr(3)

	resumed, err := Resume(paused, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.PromoStatusExhausted, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Empty(t, resumed.PauseReason)
}

func TestRecordView(t *testing.T) {
	p := RecordView(RecordView(activePromo()))
	assert.Equal(t, int64(2), p.Analytics.Views)

	base := activePromo()
	base.Analytics.FailureReasons = map[string]int64{string(ReasonExpired): 1}
	bulk := RecordViews(base, 7)
	assert.Equal(t, int64(7), bulk.Analytics.Views)
	assert.Equal(t, int64(0), base.Analytics.Views)

	bulk.Analytics.FailureReasons[string(ReasonExpired)] = 9
	assert.Equal(t, int64(1), base.Analytics.FailureReasons[string(ReasonExpired)])

	assert.Equal(t, base.Analytics, RecordViews(base, 0).Analytics)
}

func TestValidateDefinition(t *testing.T) {
	require.NoError(t, ValidateDefinition(activePromo()))

	cases := []func(p *models.PromoCode){
		func(p *models.PromoCode) { p.Code = "ab" },
		func(p *models.PromoCode) { p.Code = "lower" },
		func(p *models.PromoCode) { p.Code = "THIS_CODE_IS_WAY_TOO_LONG" },
		func(p *models.PromoCode) { p.Value = 101 },
		func(p *models.PromoCode) { p.Type = "mystery" },
		func(p *models.PromoCode) { p.Scope = "planet" },
		func(p *models.PromoCode) { p.ValidUntil = p.ValidFrom },
		func(p *models.PromoCode) { p.Restrictions.AllowedDaysOfWeek = []int{7} },
		func(p *models.PromoCode) {
			p.Restrictions.AllowedTimeSlots = []models.TimeSlot{{Start: "12:00", End: "11:00"}}
		},
		func(p *models.PromoCode) {
			p.Restrictions.MinOrderAmount = int64Ptr(10)
			p.Restrictions.MaxOrderAmount = int64Ptr(5)
		},
	}
	for i, mutate := range cases {
		p := activePromo()
		mutate(&p)
		assert.ErrorIs(t, ValidateDefinition(p), ErrInvalidDefinition, "case %d", i)
	}

	assert.Equal(t, "SUMMER_24", NormalizeCode("  summer_24 "))
}

func TestReasonMessages(t *testing.T) {
	assert.True(t, ReasonCooldownActive.Known())
	assert.NotEqual(t, string(ReasonCooldownActive), ReasonCooldownActive.Message())
	assert.False(t, Reason("BOGUS").Known())
}
