package usecase

import (
	"context"
	"testing"
	"time"
)

func TestCVFoldsAreChronologicalAndCausal(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	feats := seededFeatureStore(now, 600)
	cvStore := &fakeCVStore{}

	cv := NewCrossValidator(feats, cvStore, &fakePredictor{}, fakeMetrics{}, testLogger())
	cv.now = func() time.Time { return now }

	result, err := cv.RunCV(context.Background(), 3, 48, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CompletedFolds != 3 || result.SkippedFolds != 0 {
		t.Fatalf("expected 3 completed folds, got %+v", result)
	}
	if len(cvStore.folds) != 3 {
		t.Fatalf("expected 3 persisted folds, got %d", len(cvStore.folds))
	}

	for i, fold := range result.Folds {
		if !fold.TrainEnd.Before(fold.ValidationStart) {
			t.Fatalf("fold %d trains into its validation window: train end %v, validation start %v",
				i, fold.TrainEnd, fold.ValidationStart)
		}
		if fold.ValidationRows != 48 {
			t.Fatalf("fold %d validation rows = %d, want 48", i, fold.ValidationRows)
		}
		if i > 0 {
			prev := result.Folds[i-1]
			if fold.TrainRows <= prev.TrainRows {
				t.Fatalf("expanding window violated: fold %d train rows %d after %d",
					i, fold.TrainRows, prev.TrainRows)
			}
			if !prev.ValidationEnd.Before(fold.ValidationStart) {
				t.Fatalf("validation windows overlap between folds %d and %d", i-1, i)
			}
		}
		if fold.RunID != result.RunID {
			t.Fatalf("fold %d carries run id %s, want %s", i, fold.RunID, result.RunID)
		}
	}
}

func TestCVRejectsTooFewRows(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	cv := NewCrossValidator(seededFeatureStore(now, 100), &fakeCVStore{}, &fakePredictor{},
		fakeMetrics{}, testLogger())
	cv.now = func() time.Time { return now }

	if _, err := cv.RunCV(context.Background(), 5, 168, nil); err == nil {
		t.Fatalf("expected error when rows cannot cover folds plus training minimum")
	}
}

func TestCVAveragesOnlyCompletedFolds(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	// 400 usable rows cannot fit five 168h validation windows; the
	// oldest folds fall off the start of the series and are skipped.
	cv := NewCrossValidator(seededFeatureStore(now, 400), &fakeCVStore{}, &fakePredictor{},
		fakeMetrics{}, testLogger())
	cv.now = func() time.Time { return now }

	result, err := cv.RunCV(context.Background(), 5, 168, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CompletedFolds+result.SkippedFolds != 5 {
		t.Fatalf("folds must sum to 5, got %+v", result)
	}
	if result.SkippedFolds == 0 {
		t.Fatalf("expected skipped folds, got %+v", result)
	}
	if result.CompletedFolds != len(result.Folds) {
		t.Fatalf("completed folds %d does not match persisted %d",
			result.CompletedFolds, len(result.Folds))
	}
}
