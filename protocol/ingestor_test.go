package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

// recordingHandler captures which callback fired and for which serial.
type recordingHandler struct {
	NoOpHandler
	calls   []string
	request *OrderRequest
}

func (h *recordingHandler) record(what, serial string) {
	h.calls = append(h.calls, what+":"+serial)
}

func (h *recordingHandler) HandleOrderRequest(req *OrderRequest) {
	h.request = req
	h.record("orderRequest", "")
}
func (h *recordingHandler) HandleModuleState(serial string, _ *ModuleState) {
	h.record("moduleState", serial)
}
func (h *recordingHandler) HandleModuleConnection(serial string, _ *ConnectionState) {
	h.record("moduleConnection", serial)
}
func (h *recordingHandler) HandleFtsState(serial string, _ *FtsState) {
	h.record("ftsState", serial)
}
func (h *recordingHandler) HandleFtsFactsheet(serial string, _ *Factsheet) {
	h.record("ftsFactsheet", serial)
}
func (h *recordingHandler) HandleSetReset() {
	h.record("setReset", "")
}
func (h *recordingHandler) HandleSetResetOrder(req *ResetOrderRequest) {
	h.record("setResetOrder", req.OrderID)
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleRawRouting(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h)

	ing.HandleRaw(TopicOrderRequest, payload(t, OrderRequest{
		OrderType: OrderTypeProduction,
		Type:      WorkpieceBlue,
	}))
	ing.HandleRaw(ModuleStateTopic("DRILL-1"), payload(t, ModuleState{
		ModuleType: ModuleDrill,
		Timestamp:  time.Now(),
	}))
	ing.HandleRaw("module/v1/ff/DRILL-1/connection", payload(t, ConnectionState{
		ConnectionState: ConnOnline,
	}))
	ing.HandleRaw(FtsStateTopic("FTS-1"), payload(t, FtsState{
		LastNodeID: "X1",
		Timestamp:  time.Now(),
	}))
	ing.HandleRaw("fts/v1/ff/FTS-1/factsheet", payload(t, Factsheet{SerialNumber: "FTS-1"}))
	ing.HandleRaw(TopicSetReset, []byte(`{}`))
	ing.HandleRaw(TopicSetResetOrder, payload(t, ResetOrderRequest{OrderID: "order-7"}))

	want := []string{
		"orderRequest:",
		"moduleState:DRILL-1",
		"moduleConnection:DRILL-1",
		"ftsState:FTS-1",
		"ftsFactsheet:FTS-1",
		"setReset:",
		"setResetOrder:order-7",
	}
	if len(h.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", h.calls, want)
	}
	for i := range want {
		if h.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, h.calls[i], want[i])
		}
	}
	if h.request == nil || h.request.Type != WorkpieceBlue {
		t.Errorf("decoded request = %+v", h.request)
	}
}

func TestHandleRawDropsMalformed(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h)

	ing.HandleRaw(TopicOrderRequest, []byte(`{not json`))
	ing.HandleRaw(ModuleStateTopic("DRILL-1"), []byte(`[]`))

	if len(h.calls) != 0 {
		t.Errorf("malformed payloads must be dropped, calls = %v", h.calls)
	}
}

func TestHandleRawDropsStaleState(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h)

	ing.HandleRaw(FtsStateTopic("FTS-1"), payload(t, FtsState{
		Timestamp: time.Now().Add(-2 * StaleAfter),
	}))
	if len(h.calls) != 0 {
		t.Fatalf("stale state must be dropped, calls = %v", h.calls)
	}

	// Without a timestamp there is no age to judge; the report passes.
	ing.HandleRaw(FtsStateTopic("FTS-1"), payload(t, FtsState{}))
	if len(h.calls) != 1 {
		t.Errorf("untimestamped state must pass, calls = %v", h.calls)
	}
}

func TestHandleRawIgnoresUnknownTopics(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h)

	for _, topic := range []string{
		"module/v1/ff/DRILL-1/bogus",
		"module/v1/ff/state",
		"somewhere/else",
		"",
	} {
		ing.HandleRaw(topic, []byte(`{}`))
	}
	if len(h.calls) != 0 {
		t.Errorf("unknown topics must be ignored, calls = %v", h.calls)
	}
}

func TestParseTopicRoundTrip(t *testing.T) {
	cases := []struct {
		topic  string
		kind   TopicKind
		serial string
	}{
		{TopicOrderRequest, KindOrderRequest, ""},
		{TopicOrderCancel, KindOrderCancel, ""},
		{TopicSetLayout, KindSetLayout, ""},
		{ModuleStateTopic("HBW-1"), KindModuleState, "HBW-1"},
		{ModuleFactsheetTopic("AIQS-1"), KindModuleFactsheet, "AIQS-1"},
		{FtsStateTopic("FTS-2"), KindFtsState, "FTS-2"},
		{FtsOrderTopic("FTS-2"), KindUnknown, ""}, // outbound only
		{"module/v1/ff/HBW-1", KindUnknown, ""},
	}
	for _, tc := range cases {
		t.Run(tc.topic, func(t *testing.T) {
			kind, serial := ParseTopic(tc.topic)
			if kind != tc.kind || serial != tc.serial {
				t.Errorf("ParseTopic(%q) = %v, %q; want %v, %q", tc.topic, kind, serial, tc.kind, tc.serial)
			}
		})
	}
}

func TestSubscriptionsCoverEveryInboundKind(t *testing.T) {
	covered := map[TopicKind]bool{}
	for _, sub := range Subscriptions() {
		topic := sub.Topic
		// Expand the single-level wildcard with a sample serial.
		topic = strings.Replace(topic, "+", "SVR4711", 1)
		kind, _ := ParseTopic(topic)
		if kind == KindUnknown {
			t.Errorf("subscription %q does not route", sub.Topic)
		}
		covered[kind] = true
	}
	for kind := KindOrderRequest; kind <= KindFtsFactsheet; kind++ {
		if !covered[kind] {
			t.Errorf("no subscription covers kind %v", kind)
		}
	}
}

func TestFtsStateDecodesFields(t *testing.T) {
	raw := fmt.Sprintf(`{
		"serialNumber": "FTS-1",
		"lastNodeId": "X2",
		"driving": true,
		"batteryState": {"percentage": 42.5, "charging": false},
		"loads": [{"loadType": "RED", "loadPosition": "1", "loadId": "order-9"}],
		"timestamp": %q
	}`, time.Now().Format(time.RFC3339))

	var st FtsState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.LastNodeID != "X2" || !st.Driving || st.Battery.Percentage != 42.5 {
		t.Errorf("decoded state = %+v", st)
	}
	if len(st.Loads) != 1 || st.Loads[0].LoadID != "order-9" {
		t.Errorf("decoded loads = %+v", st.Loads)
	}
}
