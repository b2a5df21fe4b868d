package http

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
)

func outboundFromEvent(ev core.Event) proto.Outbound {
	return proto.Outbound{Event: string(ev.Name), Data: ev.Data}
}

func decodeInbound(data []byte) (proto.Inbound, error) {
	var in proto.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return proto.Inbound{}, fmt.Errorf("decode frame: %w", err)
	}
	if in.Event == "" {
		return proto.Inbound{}, fmt.Errorf("decode frame: missing event")
	}
	return in, nil
}
