package iips

import "testing"

func TestStatusRecord_PackUnpackRoundTrip(t *testing.T) {
	r := StatusRecord{
		ID:        42,
		Timestamp: 1234.5678,
		Status:    1,
		Lat:       0.5123,
		Lon:       -1.231,
		Alt:       123.4,
		Roll:      0.01,
		Pitch:     -0.02,
		Yaw:       3.14,
		VNorth:    1.5,
		VEast:     -2.5,
		VDown:     0.25,
		GyroX:     0.001,
		GyroY:     -0.002,
		GyroZ:     0.003,
	}
	packed := r.Pack()
	if len(packed) != StatusRecordLen {
		t.Fatalf("Pack length = %d, want %d", len(packed), StatusRecordLen)
	}
	got, ok := UnpackStatusRecord(packed)
	if !ok {
		t.Fatalf("UnpackStatusRecord returned ok=false")
	}
	if got != r {
		t.Fatalf("UnpackStatusRecord = %+v, want %+v", got, r)
	}
}

func TestUnpackStatusRecord_RejectsWrongLength(t *testing.T) {
	_, ok := UnpackStatusRecord(make([]byte, StatusRecordLen-1))
	if ok {
		t.Fatalf("expected ok=false for short buffer")
	}
}

func TestEncodeStatusFrame_WrapsBinaryFrame(t *testing.T) {
	wire, err := EncodeStatusFrame(StatusRecord{ID: 1})
	if err != nil {
		t.Fatalf("EncodeStatusFrame error: %v", err)
	}
	buf := NewBuffer(BinaryBufferCap)
	buf.Append(wire)
	frame, outcome := BinaryCodec{}.Decode(buf)
	if outcome != OutcomeFrame {
		t.Fatalf("Decode outcome = %v, want OutcomeFrame", outcome)
	}
	if frame.ID != PacketStatus {
		t.Fatalf("frame.ID = %d, want %d", frame.ID, PacketStatus)
	}
	if len(frame.Payload) != StatusRecordLen {
		t.Fatalf("payload length = %d, want %d", len(frame.Payload), StatusRecordLen)
	}
}
