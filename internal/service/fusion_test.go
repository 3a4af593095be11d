package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/roi"
)

var fusionNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestFusion(store interfaces.SignalStore, synth interfaces.Synthesizer) *FusionService {
	f := NewFusionService(store, synth, config.FusionConfig{}, quietLogger())
	f.now = func() time.Time { return fusionNow }
	return f
}

func insertAll(t *testing.T, store *memStore, signals ...*model.Signal) {
	t.Helper()
	for _, s := range signals {
		if err := store.InsertSignal(context.Background(), s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func welcomeSignals() []*model.Signal {
	at := fusionNow.Add(-time.Hour)
	return []*model.Signal{
		sig(model.BotReddit, "Need a welcome email sequence", 80, at),
		sig(model.BotHackerNews, "Would pay for welcome emails", 80, at),
	}
}

func TestFusion_WelcomeEmailScenario(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)

	res, err := newTestFusion(store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OpportunitiesCreated != 1 || res.OpportunitiesUpdated != 0 || res.SignalsLinked != 2 || res.LLMUsed {
		t.Fatalf("result = %+v", res)
	}

	opps := store.activeOpportunities()
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	o := opps[0]
	if o.DemandScore != 70 || !o.IsHot || o.ConvergenceScore != 2 || o.PainIntensity != 80 {
		t.Errorf("scores = demand %d hot %v convergence %d pain %d", o.DemandScore, o.IsHot, o.ConvergenceScore, o.PainIntensity)
	}
	if o.Category != "Email" || o.Source != "reddit + hacker_news" || o.Title != "Need a welcome email sequence" {
		t.Errorf("opportunity = %+v", o)
	}
	if o.AvgEarnings != "$100–250" || o.TimeToDeliver != "~1–2 days" || o.Competition != model.CompetitionMedium || o.Trend != model.TrendRising {
		t.Errorf("defaults = %q %q %q %q", o.AvgEarnings, o.TimeToDeliver, o.Competition, o.Trend)
	}
	if o.Description != "Need a welcome email sequence. Would pay for welcome emails" {
		t.Errorf("description = %q", o.Description)
	}
	want := roi.ComputeEarningsPerHour(o.AvgEarnings, o.TimeToDeliver, o.Competition, 70)
	if o.EarningsPerHour == nil || *o.EarningsPerHour != want {
		t.Errorf("earnings_per_hour = %v, want %v", o.EarningsPerHour, want)
	}
	if !o.UpdatedAt.Equal(fusionNow) {
		t.Errorf("updated_at = %v", o.UpdatedAt)
	}
	for _, id := range []uint64{1, 2} {
		if s := store.signal(id); s.OpportunityID == nil || *s.OpportunityID != o.ID {
			t.Errorf("signal %d not claimed by opportunity %d", id, o.ID)
		}
	}
}

func TestFusion_Idempotent(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)
	f := newTestFusion(store, nil)

	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.OpportunitiesCreated != 0 || res.OpportunitiesUpdated != 0 || res.SignalsLinked != 0 {
		t.Errorf("second run changed state: %+v", res)
	}
	if n := len(store.activeOpportunities()); n != 1 {
		t.Errorf("opportunities = %d, want 1", n)
	}
}

// 被拒绝的簇不会因为其他簇认领了低强度成员而在下一轮“自动”过门槛
func TestFusion_RejectedClusterStaysRejectedWithoutNewSignals(t *testing.T) {
	store := newMemStore()
	at := fusionNow.Add(-time.Hour)
	insertAll(t, store,
		sig(model.BotReddit, "welcome email app", 0, at),
		sig(model.BotHackerNews, "newsletter drip", 80, at),
		sig(model.BotReddit, "saas plugin", 50, at),
		sig(model.BotReddit, "software", 50, at),
	)
	f := newTestFusion(store, nil)

	first, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.OpportunitiesCreated != 1 || first.SignalsLinked != 2 {
		t.Fatalf("first run = %+v", first)
	}
	if o := store.activeOpportunities()[0]; o.Category != "Email" {
		t.Fatalf("first run opportunity = %+v", o)
	}

	second, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.OpportunitiesCreated != 0 || second.OpportunitiesUpdated != 0 || second.SignalsLinked != 0 {
		t.Errorf("second run with no new signals changed state: %+v", second)
	}
	if n := len(store.activeOpportunities()); n != 1 {
		t.Errorf("opportunities = %d, want 1", n)
	}
	for _, id := range []uint64{3, 4} {
		if s := store.signal(id); s.OpportunityID != nil {
			t.Errorf("signal %d claimed by %d, want unclaimed", id, *s.OpportunityID)
		}
	}
}

// 已认领信号仍计入门槛统计，但只有新信号会被认领
func TestFusion_ClaimedSignalsCountAsEvidence(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)
	f := newTestFusion(store, nil)
	if _, err := f.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// 单条新信号本身达不到 min_signals，靠已认领的证据过门槛
	insertAll(t, store, sig(model.BotX, "Welcome email help", 80, fusionNow.Add(-time.Minute)))
	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.OpportunitiesCreated != 0 || res.OpportunitiesUpdated != 1 || res.SignalsLinked != 1 {
		t.Fatalf("second run = %+v", res)
	}
	o := store.activeOpportunities()[0]
	if o.ConvergenceScore != 3 || o.Source != "x + reddit + hacker_news" {
		t.Errorf("opportunity = %+v", o)
	}
	if s := store.signal(3); s.OpportunityID == nil || *s.OpportunityID != o.ID {
		t.Error("new signal should be claimed by the existing opportunity")
	}
}

func TestFusion_GateBoundaries(t *testing.T) {
	at := fusionNow.Add(-time.Hour)
	cases := []struct {
		name    string
		signals []*model.Signal
		want    int
	}{
		{"single member", []*model.Signal{sig(model.BotReddit, "Custom dog portrait", 100, at)}, 0},
		{"demand 39", []*model.Signal{
			sig(model.BotReddit, "Custom dog portrait", 48, at),
			sig(model.BotReddit, "Pet illustration request", 48, at),
		}, 0},
		{"demand 40", []*model.Signal{
			sig(model.BotReddit, "Custom dog portrait", 50, at),
			sig(model.BotReddit, "Pet illustration request", 50, at),
		}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			insertAll(t, store, tc.signals...)
			res, err := newTestFusion(store, nil).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.OpportunitiesCreated != tc.want {
				t.Fatalf("created = %d, want %d", res.OpportunitiesCreated, tc.want)
			}
			if tc.want == 1 {
				o := store.activeOpportunities()[0]
				if o.DemandScore != 40 || o.IsHot || o.Category != "Pet" {
					t.Errorf("opportunity = %+v", o)
				}
			}
		})
	}
}

func TestFusion_LookbackWindow(t *testing.T) {
	store := newMemStore()
	old := fusionNow.Add(-49 * time.Hour)
	insertAll(t, store,
		sig(model.BotReddit, "Need a welcome email sequence", 80, old),
		sig(model.BotX, "Would pay for welcome emails", 80, old),
	)
	res, err := newTestFusion(store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OpportunitiesCreated != 0 {
		t.Errorf("signals outside lookback should be ignored: %+v", res)
	}
}

func TestFusion_ExpiresOnlyStale(t *testing.T) {
	store := newMemStore()
	stale := store.seed(&model.Opportunity{Title: "stale", Category: "Design", DemandScore: 55, IsActive: true, UpdatedAt: fusionNow.Add(-15 * 24 * time.Hour)})
	fresh := store.seed(&model.Opportunity{Title: "fresh", Category: "Tool", IsActive: true, UpdatedAt: fusionNow.Add(-13 * 24 * time.Hour)})

	res, err := newTestFusion(store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OpportunitiesExpired != 1 {
		t.Fatalf("expired = %d, want 1", res.OpportunitiesExpired)
	}
	got := store.opportunity(stale.ID)
	if got.IsActive {
		t.Error("stale opportunity still active")
	}
	want := *stale
	want.IsActive = false
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("expiry changed more than is_active:\n got %+v\nwant %+v", *got, want)
	}
	if !store.opportunity(fresh.ID).IsActive {
		t.Error("fresh opportunity expired")
	}
}

func TestFusion_ClaimOnceAcrossTopics(t *testing.T) {
	store := newMemStore()
	at := fusionNow.Add(-time.Hour)
	insertAll(t, store,
		sig(model.BotReddit, "Email automation tool needed", 80, at),
		sig(model.BotX, "Need an email automation app", 80, at),
	)

	res, err := newTestFusion(store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OpportunitiesCreated != 2 || res.SignalsLinked != 2 {
		t.Fatalf("result = %+v", res)
	}

	var emailID uint64
	for _, o := range store.activeOpportunities() {
		if o.Category == "Email" {
			emailID = o.ID
		}
	}
	if emailID == 0 {
		t.Fatal("email opportunity missing")
	}
	for _, id := range []uint64{1, 2} {
		if s := store.signal(id); s.OpportunityID == nil || *s.OpportunityID != emailID {
			t.Errorf("signal %d should belong to the first (email) opportunity", id)
		}
	}
}

func TestFusion_SynthesizedPath(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)
	existing := store.seed(&model.Opportunity{Title: "old", Category: "Email", ClusterKey: "email#0", IsActive: true, UpdatedAt: fusionNow.Add(-time.Hour)})

	synth := &fakeSynth{byTopic: map[string][]model.SynthesizedOpportunity{
		"email": {
			{Title: "Shopify welcome flows", Category: "Email Marketing", AvgEarnings: "$150", TimeToDeliver: "~4 hrs", Competition: "low", Trend: "rising"},
			{Title: "Newsletter onboarding", Category: "Email Marketing", AvgEarnings: "$100-200", TimeToDeliver: "~1 day", Competition: "high", Trend: "stable", IsHot: true},
		},
	}}

	res, err := newTestFusion(store, synth).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.LLMUsed || res.OpportunitiesCreated != 1 || res.OpportunitiesUpdated != 1 || res.SignalsLinked != 2 {
		t.Fatalf("result = %+v", res)
	}

	updated := store.opportunity(existing.ID)
	if updated.Title != "Shopify welcome flows" || !updated.IsHot || updated.DemandScore != 70 || updated.Competition != "low" {
		t.Errorf("updated = %+v", updated)
	}
	second, _ := store.FindActiveOpportunityByClusterKey(context.Background(), "email#1")
	if second == nil || second.Title != "Newsletter onboarding" || second.Trend != "stable" {
		t.Fatalf("second = %+v", second)
	}
	if s := store.signal(1); s.OpportunityID == nil || *s.OpportunityID != existing.ID {
		t.Error("signals should be claimed by the first synthesized opportunity")
	}
}

func TestFusion_SynthesizedRowsReusedAcrossRuns(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)
	synth := &fakeSynth{byTopic: map[string][]model.SynthesizedOpportunity{
		"email": {{Title: "Shopify welcome flows", Category: "Email Marketing", AvgEarnings: "$150", TimeToDeliver: "~4 hrs", Competition: "low", Trend: "rising"}},
	}}
	f := newTestFusion(store, synth)

	first, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.OpportunitiesCreated != 1 {
		t.Fatalf("first run = %+v", first)
	}

	at := fusionNow.Add(-30 * time.Minute)
	insertAll(t, store,
		sig(model.BotX, "Drip campaign for my store", 60, at),
		sig(model.BotProductHunt, "Newsletter onboarding wanted", 60, at),
	)
	second, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.OpportunitiesCreated != 0 || second.OpportunitiesUpdated != 1 || second.SignalsLinked != 2 {
		t.Fatalf("second run = %+v", second)
	}
	opps := store.activeOpportunities()
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	if opps[0].ClusterKey != "email#0" || opps[0].ConvergenceScore != 4 {
		t.Errorf("opportunity = %+v", opps[0])
	}
	for _, id := range []uint64{3, 4} {
		if s := store.signal(id); s.OpportunityID == nil || *s.OpportunityID != opps[0].ID {
			t.Errorf("signal %d not claimed by the reused opportunity", id)
		}
	}
}

func TestFusion_SynthesisInputsCapped(t *testing.T) {
	store := newMemStore()
	at := fusionNow.Add(-time.Hour)
	for i := 0; i < 12; i++ {
		insertAll(t, store, sig(model.BotReddit, fmt.Sprintf("welcome email %d", i), 60, at))
	}
	synth := &fakeSynth{}
	if _, err := newTestFusion(store, synth).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(synth.inputs, []int{10}) {
		t.Errorf("synthesis inputs = %v, want [10]", synth.inputs)
	}
}

func TestFusion_FallbackUpdatesByCategory(t *testing.T) {
	store := newMemStore()
	insertAll(t, store, welcomeSignals()...)
	existing := store.seed(&model.Opportunity{
		Title: "Old title", Category: "email", AvgEarnings: "$999", TimeToDeliver: "~1 hr",
		Competition: "low", ClusterKey: "stale", IsActive: true, UpdatedAt: fusionNow.Add(-2 * time.Hour),
	})

	res, err := newTestFusion(store, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OpportunitiesCreated != 0 || res.OpportunitiesUpdated != 1 {
		t.Fatalf("result = %+v", res)
	}
	o := store.opportunity(existing.ID)
	if o.Title != "Old title" || o.AvgEarnings != "$999" || o.Competition != "low" {
		t.Errorf("fallback update should keep title and estimates: %+v", o)
	}
	if o.ClusterKey != buildClusterKey("email", []uint64{1, 2}) || o.DemandScore != 70 || !o.UpdatedAt.Equal(fusionNow) {
		t.Errorf("fallback update should refresh key and scores: %+v", o)
	}
}

func TestFusion_NilStore(t *testing.T) {
	res, err := newTestFusion(nil, nil).Run(context.Background())
	if err != nil || res != (model.FusionResult{}) {
		t.Errorf("nil store: %+v %v", res, err)
	}
}

func TestFusion_StoreErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	store := newMemStore()
	store.unclaimed = boom
	_, err := newTestFusion(store, nil).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestBuildClusterKey(t *testing.T) {
	a := buildClusterKey("email", []uint64{3, 1, 2})
	b := buildClusterKey("email", []uint64{1, 2, 3})
	if a != b || len(a) != 32 {
		t.Errorf("key not stable: %q %q", a, b)
	}
	if a == buildClusterKey("tool", []uint64{1, 2, 3}) {
		t.Error("topic should be part of the key")
	}
}
