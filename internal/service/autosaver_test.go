package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chetgo/sahod-solutions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedSave struct {
	registrationID string
	step           int
	payload        StepPayload
}

type recordingSaver struct {
	mu    sync.Mutex
	saves []recordedSave
}

func (r *recordingSaver) SaveStep(ctx context.Context, registrationID string, step int, payload StepPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, recordedSave{registrationID: registrationID, step: step, payload: payload})
	return nil
}

func (r *recordingSaver) snapshot() []recordedSave {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedSave(nil), r.saves...)
}

func waitForSaves(t *testing.T, saver *recordingSaver, want int) []recordedSave {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if saves := saver.snapshot(); len(saves) >= want {
			return saves
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d saves, got %d", want, len(saver.snapshot()))
	return nil
}

func TestAutoSaver_CollapsesRapidSaves(t *testing.T) {
	t.Parallel()

	saver := &recordingSaver{}
	auto := NewAutoSaver(saver, 30*time.Millisecond, zap.NewNop())
	defer auto.Close()

	// Three keystroke-grade saves in quick succession: only the last
	// one should be persisted.
	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "K"}})
	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "Ka"}})
	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "Kape"}})

	saves := waitForSaves(t, saver, 1)
	require.Len(t, saves, 1)
	assert.Equal(t, "reg_1", saves[0].registrationID)
	assert.Equal(t, "Kape", saves[0].payload.CompanyInfo.Name)

	// No further saves fire after the window.
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, saver.snapshot(), 1)
}

func TestAutoSaver_RegistrationsAreIndependent(t *testing.T) {
	t.Parallel()

	saver := &recordingSaver{}
	auto := NewAutoSaver(saver, 20*time.Millisecond, zap.NewNop())
	defer auto.Close()

	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "A"}})
	auto.Queue("reg_2", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "B"}})

	saves := waitForSaves(t, saver, 2)
	ids := map[string]bool{}
	for _, s := range saves {
		ids[s.registrationID] = true
	}
	assert.True(t, ids["reg_1"])
	assert.True(t, ids["reg_2"])
}

func TestAutoSaver_FlushPersistsImmediately(t *testing.T) {
	t.Parallel()

	saver := &recordingSaver{}
	auto := NewAutoSaver(saver, time.Hour, zap.NewNop())
	defer auto.Close()

	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "Kape"}})
	auto.Flush(context.Background())

	saves := saver.snapshot()
	require.Len(t, saves, 1)
	assert.Equal(t, "reg_1", saves[0].registrationID)
}

func TestAutoSaver_CloseRejectsNewWork(t *testing.T) {
	t.Parallel()

	saver := &recordingSaver{}
	auto := NewAutoSaver(saver, 10*time.Millisecond, zap.NewNop())
	auto.Close()

	auto.Queue("reg_1", model.StepCompanyInfo, StepPayload{CompanyInfo: &model.CompanyInfo{Name: "late"}})
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, saver.snapshot())
}
