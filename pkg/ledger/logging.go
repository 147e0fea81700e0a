package ledger

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes an attempted ledger operation.
type OperationLog struct {
	Operation  string
	Caller     Address
	CampaignID CampaignID
	Units      Units
	Amount     Amount
	Status     string
	Error      error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithEventSinks appends notification sinks, invoked in the given order.
func WithEventSinks(sinks ...EventSink) ServiceOption {
	return func(service *Service) {
		for _, sink := range sinks {
			if sink != nil {
				service.sinks = append(service.sinks, sink)
			}
		}
	}
}

// WithStrictValidation enforces capacity, exact payment and consumption bounds.
// Without it donate only rejects a zero payment and consume is unbounded.
func WithStrictValidation() ServiceOption {
	return func(service *Service) {
		service.strict = true
	}
}
