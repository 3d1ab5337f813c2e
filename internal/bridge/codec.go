package bridge

import (
	"encoding/json"
	"fmt"
)

// Operation names carried on the wire.
const (
	OpSetBlockList       = "set_block_list"
	OpSetShieldActive    = "set_shield_active"
	OpQueryShieldActive  = "query_shield_active"
	OpRequestSelectionUI = "request_selection_ui"
	OpQueryStatus        = "query_status"
	OpReportForeground   = "report_foreground"
)

// Envelope is the wire form of a Request.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Encode wraps req in an envelope.
func Encode(req Request) (*Envelope, error) {
	var op string
	switch req.(type) {
	case SetBlockList:
		op = OpSetBlockList
	case SetShieldActive:
		op = OpSetShieldActive
	case QueryShieldActive:
		op = OpQueryShieldActive
	case RequestSelectionUI:
		op = OpRequestSelectionUI
	case QueryStatus:
		op = OpQueryStatus
	case ReportForeground:
		op = OpReportForeground
	default:
		return nil, fmt.Errorf("unsupported request type %T", req)
	}

	args, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", op, err)
	}
	return &Envelope{Op: op, Args: args}, nil
}

// Decode unwraps an envelope into its request variant.
func Decode(env *Envelope) (Request, error) {
	if env == nil {
		return nil, fmt.Errorf("empty envelope")
	}

	switch env.Op {
	case OpSetBlockList:
		var r SetBlockList
		if err := decodeArgs(env, &r); err != nil {
			return nil, err
		}
		return r, nil
	case OpSetShieldActive:
		var r SetShieldActive
		if err := decodeArgs(env, &r); err != nil {
			return nil, err
		}
		return r, nil
	case OpQueryShieldActive:
		return QueryShieldActive{}, nil
	case OpRequestSelectionUI:
		return RequestSelectionUI{}, nil
	case OpQueryStatus:
		return QueryStatus{}, nil
	case OpReportForeground:
		var r ReportForeground
		if err := decodeArgs(env, &r); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", env.Op)
	}
}

func decodeArgs(env *Envelope, v any) error {
	if len(env.Args) == 0 {
		return fmt.Errorf("%s: missing arguments", env.Op)
	}
	if err := json.Unmarshal(env.Args, v); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", env.Op, err)
	}
	return nil
}
