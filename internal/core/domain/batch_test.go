package domain

import (
	"strings"
	"testing"
)

func TestOperationResult_Failed(t *testing.T) {
	if (OperationResult{StatusCode: 200}).Failed() {
		t.Error("expected 200 to succeed")
	}
	if !(OperationResult{StatusCode: 400}).Failed() {
		t.Error("expected 400 to fail")
	}
	if !(OperationResult{}).Failed() {
		t.Error("expected missing status code to fail")
	}
}

func TestOperationResult_RemoteError(t *testing.T) {
	result := OperationResult{
		OperationID: "create-product-1-store-1",
		StatusCode:  400,
		Response:    `{"type":"about:blank","title":"Invalid Resource","status":400,"detail":"The resource submitted could not be validated.","errors":[{"field":"title","message":"This value should not be blank."}]}`,
	}
	remote := result.RemoteError()
	if remote.Title != "Invalid Resource" {
		t.Errorf("unexpected title %q", remote.Title)
	}
	if len(remote.Errors) != 1 || remote.Errors[0].Field != "title" {
		t.Errorf("unexpected field errors %+v", remote.Errors)
	}
	msg := remote.Error()
	if !strings.Contains(msg, "400 Invalid Resource") || !strings.Contains(msg, "title - This value should not be blank.") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestOperationResult_RemoteError_PlainText(t *testing.T) {
	remote := OperationResult{StatusCode: 502, Response: "Bad Gateway\n"}.RemoteError()
	if remote.Status != 502 {
		t.Errorf("expected status from result, got %d", remote.Status)
	}
	if remote.Detail != "Bad Gateway" {
		t.Errorf("expected raw detail, got %q", remote.Detail)
	}
}

func TestBatch_IsFinished(t *testing.T) {
	var nilBatch *Batch
	if nilBatch.IsFinished() {
		t.Error("nil batch is not finished")
	}
	if (&Batch{Status: BatchStatusStarted}).IsFinished() {
		t.Error("started batch is not finished")
	}
	if !(&Batch{Status: BatchStatusFinished}).IsFinished() {
		t.Error("expected finished")
	}
}
