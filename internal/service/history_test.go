package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go-sign-recognizer/internal/storage"
)

func TestHistoryLifecycle(t *testing.T) {
	f := newFixture(t, brightnessClassifier())
	ctx := context.Background()

	first, err := f.svc.PredictUpload(ctx, "alice", UploadFile{Filename: "a.png", Data: pngBytes(t, black)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.svc.PredictUpload(ctx, "alice", UploadFile{Filename: "b.png", Data: pngBytes(t, white)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.svc.PredictUpload(ctx, "bob", UploadFile{Filename: "c.png", Data: pngBytes(t, grey)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	history, err := f.svc.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if history.Count != 2 {
		t.Fatalf("Expected 2 predictions for alice, got %d", history.Count)
	}

	item, err := f.svc.GetPrediction(ctx, "alice", first.ID)
	if err != nil || item.PredictedClass != "A" {
		t.Fatalf("Expected alice's first prediction, got %+v, err=%v", item, err)
	}
	_, err = f.svc.GetPrediction(ctx, "bob", first.ID)
	assertStatus(t, err, http.StatusNotFound)

	stats, err := f.svc.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stats.TranslationsCount != 2 || stats.LastTranslationAt == nil {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	stored, _ := f.repo.Get(ctx, first.ID)
	assertStatus(t, f.svc.DeletePrediction(ctx, "bob", first.ID), http.StatusNotFound)
	if err := f.svc.DeletePrediction(ctx, "alice", first.ID); err != nil {
		t.Fatalf("Expected delete to succeed, got %v", err)
	}
	if _, err := f.store.Load(ctx, stored.StorageKey); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("Expected archived image to be removed, got %v", err)
	}
	assertStatus(t, f.svc.DeletePrediction(ctx, "alice", first.ID), http.StatusNotFound)
}

func TestHistory_RequiresUser(t *testing.T) {
	f := newFixture(t, brightnessClassifier())
	ctx := context.Background()

	_, err := f.svc.History(ctx, "", 10)
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = f.svc.Stats(ctx, "")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = f.svc.Share(ctx, "", "id")
	assertStatus(t, err, http.StatusUnauthorized)
	assertStatus(t, f.svc.RevokeShare(ctx, "", "token"), http.StatusUnauthorized)
}

func TestShareLifecycle(t *testing.T) {
	f := newFixture(t, brightnessClassifier())
	ctx := context.Background()

	pred, err := f.svc.PredictUpload(ctx, "alice", UploadFile{Filename: "a.png", Data: pngBytes(t, white)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = f.svc.Share(ctx, "bob", pred.ID)
	assertStatus(t, err, http.StatusNotFound)

	share, err := f.svc.Share(ctx, "alice", pred.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if share.Token == "" || share.Path != "/shared/"+share.Token {
		t.Errorf("Unexpected share: %+v", share)
	}

	shared, err := f.svc.ResolveShare(ctx, share.Token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if shared.Prediction.ID != pred.ID || shared.SharedBy != "alice" || shared.Prediction.PredictedClass != "C" {
		t.Errorf("Unexpected shared prediction: %+v", shared)
	}

	assertStatus(t, f.svc.RevokeShare(ctx, "bob", share.Token), http.StatusNotFound)
	if err := f.svc.RevokeShare(ctx, "alice", share.Token); err != nil {
		t.Fatalf("Expected revoke to succeed, got %v", err)
	}
	_, err = f.svc.ResolveShare(ctx, share.Token)
	assertStatus(t, err, http.StatusNotFound)
	_, err = f.svc.ResolveShare(ctx, "")
	assertStatus(t, err, http.StatusNotFound)
}
