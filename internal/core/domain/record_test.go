package domain

import (
	"errors"
	"testing"
)

func TestMerge_AllCombinations(t *testing.T) {
	tests := []struct {
		existing   OperationType
		incoming   OperationType
		wantAction MergeAction
		wantOp     OperationType
	}{
		{OperationCreate, OperationCreate, MergeKeep, OperationCreate},
		{OperationCreate, OperationUpdate, MergeKeep, OperationCreate},
		{OperationCreate, OperationDelete, MergeRemove, ""},
		{OperationUpdate, OperationCreate, MergeKeep, OperationUpdate},
		{OperationUpdate, OperationUpdate, MergeKeep, OperationUpdate},
		{OperationUpdate, OperationDelete, MergeReplace, OperationDelete},
		{OperationDelete, OperationCreate, MergeReplace, OperationUpdate},
		{OperationDelete, OperationUpdate, MergeKeep, OperationDelete},
		{OperationDelete, OperationDelete, MergeKeep, OperationDelete},
	}

	for _, tt := range tests {
		t.Run(string(tt.existing)+"+"+string(tt.incoming), func(t *testing.T) {
			action, op := Merge(tt.existing, tt.incoming)
			if action != tt.wantAction {
				t.Errorf("expected action %s, got %s", tt.wantAction, action)
			}
			if op != tt.wantOp {
				t.Errorf("expected operation %q, got %q", tt.wantOp, op)
			}
		})
	}
}

func TestNewRecordKey(t *testing.T) {
	byID := NewRecordKey(EntityTypeSubscription, 12, "Someone@Example.com")
	if byID.EmailKey != "" {
		t.Errorf("expected email to be ignored for id keys, got %q", byID.EmailKey)
	}

	byEmail := NewRecordKey(EntityTypeSubscription, 0, "  Someone@Example.com ")
	if byEmail.EmailKey != "someone@example.com" {
		t.Errorf("expected normalized email key, got %q", byEmail.EmailKey)
	}
	if byEmail != NewRecordKey(EntityTypeSubscription, 0, "someone@example.com") {
		t.Error("expected email keys to compare equal after normalization")
	}
	if byEmail.String() != "subscription:email:someone@example.com" {
		t.Errorf("unexpected key string %q", byEmail.String())
	}
	if byID.String() != "subscription:12" {
		t.Errorf("unexpected key string %q", byID.String())
	}
}

func TestChange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		change  Change
		wantErr bool
	}{
		{"valid create", Change{EntityType: EntityTypeProduct, EntityID: 1, OperationType: OperationCreate}, false},
		{"valid email delete", Change{EntityType: EntityTypeSubscription, OperationType: OperationDelete, Email: "a@x.com"}, false},
		{"unknown entity", Change{EntityType: "widget", EntityID: 1, OperationType: OperationCreate}, true},
		{"derived operation", Change{EntityType: EntityTypeProduct, EntityID: 1, OperationType: OperationCreateOrUpdate}, true},
		{"no key", Change{EntityType: EntityTypeSubscription, OperationType: OperationDelete}, true},
		{"negative id", Change{EntityType: EntityTypeOrder, EntityID: -4, OperationType: OperationUpdate}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestChange_NewRecord(t *testing.T) {
	change := Change{
		EntityType:    EntityTypeAttributeCombination,
		EntityID:      9,
		OperationType: OperationDelete,
		ProductID:     42,
	}
	record := change.NewRecord()

	if record.EntityType != EntityTypeAttributeCombination || record.EntityID != 9 {
		t.Errorf("unexpected record key %s", record.Key())
	}
	if record.ProductID != 42 {
		t.Errorf("expected product id 42, got %d", record.ProductID)
	}
	if record.OperationType != OperationDelete {
		t.Errorf("expected delete, got %s", record.OperationType)
	}
	if record.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestEntityType_IsValid(t *testing.T) {
	for _, et := range EntityTypes() {
		if !et.IsValid() {
			t.Errorf("expected %s to be valid", et)
		}
	}
	if EntityType("document").IsValid() {
		t.Error("expected unknown type to be invalid")
	}
}
