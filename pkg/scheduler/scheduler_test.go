package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/gradevault/pkg/scheduler"
)

func waitFor(t *testing.T, s *scheduler.Scheduler, name string, cond func(scheduler.JobInfo) bool) scheduler.JobInfo {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetJobInfoByName(name)
		if err != nil {
			t.Fatalf("GetJobInfoByName: %v", err)
		}

		if cond(info) {
			return info
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("job %s did not reach expected state", name)

	return scheduler.JobInfo{}
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.Start()
	defer s.Stop()

	ctx := context.Background()

	if err := s.AddCron(ctx, "ok", "0 3 * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.AddCron(ctx, "fail", "0 3 * * *", func(context.Context) error { return errors.New("boom") }); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.AddCron(ctx, "panic", "0 3 * * *", func(context.Context) error { panic("bad") }); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.AddCron(ctx, "ok", "0 4 * * *", func(context.Context) error { return nil }); err == nil {
		t.Fatal("duplicate name should be rejected")
	}

	for _, name := range []string{"ok", "fail", "panic"} {
		if err := s.RunNow(name); err != nil {
			t.Fatalf("RunNow(%s): %v", name, err)
		}
	}

	ok := waitFor(t, s, "ok", func(i scheduler.JobInfo) bool { return i.Runs == 1 })
	if ok.Status != scheduler.StatusScheduled || ok.LastSuccess.IsZero() {
		t.Errorf("ok job = %+v", ok)
	}

	fail := waitFor(t, s, "fail", func(i scheduler.JobInfo) bool { return i.Runs == 1 })
	if fail.Status != scheduler.StatusError || fail.Error != "boom" {
		t.Errorf("fail job = %+v", fail)
	}

	p := waitFor(t, s, "panic", func(i scheduler.JobInfo) bool { return i.Runs == 1 })
	if p.Status != scheduler.StatusError {
		t.Errorf("panic job = %+v", p)
	}

	infos := s.GetJobInfos()
	if len(infos) != 3 || infos[0].Name != "fail" || infos[2].Name != "panic" {
		t.Errorf("GetJobInfos order = %v", infos)
	}
}

func TestScheduler_UnknownJob(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer s.Stop()

	if err := s.RunNow("missing"); !errors.Is(err, scheduler.ErrJobNotFound) {
		t.Errorf("RunNow err = %v", err)
	}

	if err := s.RemoveJobByName("missing"); !errors.Is(err, scheduler.ErrJobNotFound) {
		t.Errorf("RemoveJobByName err = %v", err)
	}
}
