package service_test

import (
	"testing"
	"time"

	"github.com/distroline/botcrm-backend/internal/model"
)

func TestProcessDueMailingsEmpty(t *testing.T) {
	repo := newFakeMailingRepo()
	svc := newTestService(repo, nil)

	processed, err := svc.ProcessDueMailings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
}

func TestProcessDueMailingsDispatches(t *testing.T) {
	repo := newFakeMailingRepo()
	q := &fakeQueue{}
	svc := newTestService(repo, q)

	past := noonUTC.Add(-time.Minute)
	future := noonUTC.Add(time.Hour)
	due := repo.add(model.Mailing{TargetType: model.TargetAll, Status: model.MailingScheduled, ScheduledAt: &past})
	notYet := repo.add(model.Mailing{TargetType: model.TargetHoreca, Status: model.MailingScheduled, ScheduledAt: &future})

	processed, err := svc.ProcessDueMailings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if repo.mailings[due.ID].Status != model.MailingSent {
		t.Errorf("due mailing status = %q, want sent", repo.mailings[due.ID].Status)
	}
	if repo.mailings[notYet.ID].Status != model.MailingScheduled {
		t.Errorf("future mailing must stay scheduled, got %q", repo.mailings[notYet.ID].Status)
	}
	if len(repo.stats) != 4 {
		t.Errorf("stat rows = %d, want 4", len(repo.stats))
	}
	if len(q.jobs) != 4 {
		t.Errorf("published jobs = %d, want 4", len(q.jobs))
	}
}

func TestProcessDueMailingsGuardFailureCountsAsProcessed(t *testing.T) {
	repo := newFakeMailingRepo()
	svc := newTestService(repo, nil)

	past := noonUTC.Add(-time.Minute)
	small := repo.add(model.Mailing{
		TargetType:    model.TargetCustom,
		CustomTargets: []int64{1},
		Status:        model.MailingScheduled,
		ScheduledAt:   &past,
	})

	processed, err := svc.ProcessDueMailings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1 (attempts, not successes)", processed)
	}
	if repo.mailings[small.ID].Status != model.MailingScheduled {
		t.Errorf("guarded mailing must stay scheduled, got %q", repo.mailings[small.ID].Status)
	}
	if len(repo.stats) != 0 {
		t.Errorf("guarded mailing must not write stats")
	}
}

func TestProcessDueMailingsSkipsCancelled(t *testing.T) {
	repo := newFakeMailingRepo()
	svc := newTestService(repo, nil)

	// A mailing cancelled between the due query and processing must not
	// count as an attempt.
	past := noonUTC.Add(-time.Minute)
	repo.dueOverride = []model.Mailing{
		{ID: 1, TargetType: model.TargetAll, Status: model.MailingCancelled, ScheduledAt: &past},
	}

	processed, err := svc.ProcessDueMailings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, cancelled items are skipped without counting", processed)
	}
	if len(repo.stats) != 0 {
		t.Errorf("cancelled mailing must never dispatch")
	}
}

func TestProcessDueMailingsIsolatesFailures(t *testing.T) {
	repo := newFakeMailingRepo()
	svc := newTestService(repo, nil)

	past := noonUTC.Add(-time.Minute)
	a := repo.add(model.Mailing{TargetType: model.TargetAll, Status: model.MailingScheduled, ScheduledAt: &past})
	b := repo.add(model.Mailing{
		TargetType:    model.TargetCustom,
		CustomTargets: []int64{},
		Status:        model.MailingScheduled,
		ScheduledAt:   &past,
	})

	processed, err := svc.ProcessDueMailings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	if repo.mailings[a.ID].Status != model.MailingSent {
		t.Errorf("healthy mailing should dispatch despite the other failing")
	}
	if repo.mailings[b.ID].Status != model.MailingScheduled {
		t.Errorf("empty-audience mailing must stay scheduled")
	}
}
