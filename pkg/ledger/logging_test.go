package ledger

import (
	"context"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsDonateOperation(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := mustNewService(test, newStubStore(test), newStubTransferer(), WithOperationLogger(logger))
	mustAddCampaign(test, service, mustDraft(test))
	donor := mustAddress(test, donorAddressValue)
	amount := mustAmount(test, campaignUnitPrice)

	if _, err := service.Donate(context.Background(), donor, 0, 1, amount); err != nil {
		test.Fatalf("donate failed: %v", err)
	}
	if len(logger.entries) != 2 {
		test.Fatalf("expected two log entries, got %d", len(logger.entries))
	}
	entry := logger.entries[1]
	if entry.Operation != operationDonate || entry.Caller != donor || entry.CampaignID != 0 || entry.Units != 1 || entry.Amount != amount {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := mustNewService(test, newStubStore(test), newStubTransferer(), WithOperationLogger(logger))

	if _, err := service.Close(context.Background(), mustAddress(test, ownerAddressValue), 3); err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Operation != operationClose || logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}

func TestEventSinksRunInOrderAfterCommit(test *testing.T) {
	test.Parallel()
	var order []string
	first := EventSinkFunc(func(_ context.Context, event Event) {
		order = append(order, "first:"+event.Type.String())
	})
	second := EventSinkFunc(func(_ context.Context, event Event) {
		order = append(order, "second:"+event.Type.String())
	})
	service := mustNewService(test, newStubStore(test), newStubTransferer(), WithEventSinks(first, nil, second))
	mustAddCampaign(test, service, mustDraft(test))
	if _, err := service.AddCampaign(context.Background(), mustAddress(test, donorAddressValue), mustDraft(test)); err == nil {
		test.Fatalf("expected unauthorized add")
	}

	expected := []string{"first:campaign_added", "second:campaign_added"}
	if len(order) != len(expected) {
		test.Fatalf("expected %v, got %v", expected, order)
	}
	for index := range expected {
		if order[index] != expected[index] {
			test.Fatalf("expected %v, got %v", expected, order)
		}
	}
}
