package iips

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/s1"
)

func encodeMissionPayload(senderID uint16, timestamp float64, subPhase byte, latDeg, lonDeg, alt float64) []byte {
	payload := make([]byte, missionWaypointLen)
	le := binary.LittleEndian
	le.PutUint16(payload[0:2], senderID)
	le.PutUint64(payload[2:10], math.Float64bits(timestamp))
	payload[10] = subPhase
	latRad := float64(s1.Angle(latDeg * math.Pi / 180))
	lonRad := float64(s1.Angle(lonDeg * math.Pi / 180))
	le.PutUint64(payload[11:19], math.Float64bits(latRad))
	le.PutUint64(payload[19:27], math.Float64bits(lonRad))
	le.PutUint32(payload[27:31], math.Float32bits(float32(alt)))
	return payload
}

func TestAssembler_LineUploadHappyPath(t *testing.T) {
	a := NewAssembler()
	senderID := uint16(5)

	if list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 1, SubPhaseStart, 0, 0, 0)); err != nil || list != nil || !accepted {
		t.Fatalf("START: list=%v accepted=%v err=%v", list, accepted, err)
	}
	if list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 2, SubPhaseWaypoint, 10, 20, 30)); err != nil || list != nil || !accepted {
		t.Fatalf("WAYPOINT 1: list=%v accepted=%v err=%v", list, accepted, err)
	}
	if list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 3, SubPhaseWaypoint, 11, 21, 31)); err != nil || list != nil || !accepted {
		t.Fatalf("WAYPOINT 2: list=%v accepted=%v err=%v", list, accepted, err)
	}
	list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 4, SubPhaseEnd, 0, 0, 0))
	if err != nil {
		t.Fatalf("END returned error: %v", err)
	}
	if !accepted {
		t.Fatalf("END should be accepted")
	}
	if list == nil {
		t.Fatalf("END returned nil list")
	}
	if list.Kind != UploadLine || list.SenderID != senderID || len(list.Waypoints) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestAssembler_DropsNonMonotonicWaypointSilently(t *testing.T) {
	a := NewAssembler()
	senderID := uint16(1)
	a.Feed(PacketLine, encodeMissionPayload(senderID, 5, SubPhaseStart, 0, 0, 0))
	a.Feed(PacketLine, encodeMissionPayload(senderID, 10, SubPhaseWaypoint, 1, 1, 1))
	list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 9, SubPhaseWaypoint, 2, 2, 2))
	if err != nil || list != nil || accepted {
		t.Fatalf("non-monotonic waypoint should be silently dropped and unacked, got list=%v accepted=%v err=%v", list, accepted, err)
	}
	end, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, 11, SubPhaseEnd, 0, 0, 0))
	if err != nil {
		t.Fatalf("END error: %v", err)
	}
	if !accepted {
		t.Fatalf("END should be accepted")
	}
	if len(end.Waypoints) != 1 {
		t.Fatalf("expected 1 waypoint survived, got %d", len(end.Waypoints))
	}
}

func TestAssembler_RegionRejectsUnderFourWaypoints(t *testing.T) {
	a := NewAssembler()
	senderID := uint16(2)
	a.Feed(PacketRegion, encodeMissionPayload(senderID, 1, SubPhaseStart, 0, 0, 0))
	a.Feed(PacketRegion, encodeMissionPayload(senderID, 2, SubPhaseWaypoint, 0, 0, 0))
	a.Feed(PacketRegion, encodeMissionPayload(senderID, 3, SubPhaseWaypoint, 1, 1, 1))
	a.Feed(PacketRegion, encodeMissionPayload(senderID, 4, SubPhaseWaypoint, 2, 2, 2))
	list, accepted, err := a.Feed(PacketRegion, encodeMissionPayload(senderID, 5, SubPhaseEnd, 0, 0, 0))
	if list != nil {
		t.Fatalf("expected nil list for under-4-waypoint region END")
	}
	if accepted {
		t.Fatalf("a rejected END must not be acked")
	}
	if !errors.Is(err, ErrTooFewWaypoints) {
		t.Fatalf("expected ErrTooFewWaypoints, got %v", err)
	}
}

func TestAssembler_SurveyAcceptsFourWaypoints(t *testing.T) {
	a := NewAssembler()
	senderID := uint16(3)
	a.Feed(PacketSurvey, encodeMissionPayload(senderID, 1, SubPhaseStart, 0, 0, 0))
	for i := 0; i < 4; i++ {
		a.Feed(PacketSurvey, encodeMissionPayload(senderID, float64(i+2), SubPhaseWaypoint, float64(i), float64(i), float64(i)))
	}
	list, accepted, err := a.Feed(PacketSurvey, encodeMissionPayload(senderID, 100, SubPhaseEnd, 0, 0, 0))
	if err != nil {
		t.Fatalf("END error: %v", err)
	}
	if !accepted {
		t.Fatalf("END should be accepted")
	}
	if list == nil || len(list.Waypoints) != 4 || list.Kind != UploadSurvey {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestAssembler_SenderMismatchIsRejected(t *testing.T) {
	a := NewAssembler()
	a.Feed(PacketLine, encodeMissionPayload(1, 1, SubPhaseStart, 0, 0, 0))
	_, accepted, err := a.Feed(PacketLine, encodeMissionPayload(2, 2, SubPhaseWaypoint, 0, 0, 0))
	if accepted {
		t.Fatalf("a sender-mismatched frame must not be acked")
	}
	if !errors.Is(err, ErrSenderMismatch) {
		t.Fatalf("expected ErrSenderMismatch, got %v", err)
	}
}

func TestAssembler_WaypointWithoutStartIsRejected(t *testing.T) {
	a := NewAssembler()
	_, accepted, err := a.Feed(PacketLine, encodeMissionPayload(1, 1, SubPhaseWaypoint, 0, 0, 0))
	if accepted {
		t.Fatalf("a frame with no upload in progress must not be acked")
	}
	if !errors.Is(err, ErrNoUploadInProgress) {
		t.Fatalf("expected ErrNoUploadInProgress, got %v", err)
	}
}

func TestAssembler_NewStartDiscardsPendingUpload(t *testing.T) {
	a := NewAssembler()
	a.Feed(PacketLine, encodeMissionPayload(1, 1, SubPhaseStart, 0, 0, 0))
	a.Feed(PacketLine, encodeMissionPayload(1, 2, SubPhaseWaypoint, 0, 0, 0))
	a.Feed(PacketLine, encodeMissionPayload(9, 1, SubPhaseStart, 0, 0, 0))
	list, accepted, err := a.Feed(PacketLine, encodeMissionPayload(9, 2, SubPhaseEnd, 0, 0, 0))
	if err != nil {
		t.Fatalf("END error: %v", err)
	}
	if !accepted {
		t.Fatalf("END should be accepted")
	}
	if list == nil || len(list.Waypoints) != 0 || list.SenderID != 9 {
		t.Fatalf("expected fresh empty upload for sender 9, got %+v", list)
	}
}

func TestAssembler_StartAndEachWaypointAreIndividuallyAccepted(t *testing.T) {
	// Mirrors the five-ack scenario (START + 3 WAYPOINT + END): every frame
	// but a dropped/rejected one reports accepted=true on its own.
	a := NewAssembler()
	senderID := uint16(7)
	frames := []struct {
		subPhase byte
		stamp    float64
	}{
		{SubPhaseStart, 1},
		{SubPhaseWaypoint, 2},
		{SubPhaseWaypoint, 3},
		{SubPhaseWaypoint, 4},
		{SubPhaseEnd, 5},
	}
	acceptedCount := 0
	for _, f := range frames {
		_, accepted, err := a.Feed(PacketLine, encodeMissionPayload(senderID, f.stamp, f.subPhase, 0, 0, 0))
		if err != nil {
			t.Fatalf("unexpected error for subphase %d: %v", f.subPhase, err)
		}
		if accepted {
			acceptedCount++
		}
	}
	if acceptedCount != len(frames) {
		t.Fatalf("accepted count = %d, want %d", acceptedCount, len(frames))
	}
}

func TestEncodeAck_PayloadShape(t *testing.T) {
	wire, err := EncodeAck(123)
	if err != nil {
		t.Fatalf("EncodeAck error: %v", err)
	}
	buf := NewBuffer(BinaryBufferCap)
	buf.Append(wire)
	frame, outcome := BinaryCodec{}.Decode(buf)
	if outcome != OutcomeFrame {
		t.Fatalf("Decode outcome = %v", outcome)
	}
	if frame.ID != PacketAck {
		t.Fatalf("frame.ID = %d, want %d", frame.ID, PacketAck)
	}
	if len(frame.Payload) != AckPayloadLen {
		t.Fatalf("payload length = %d, want %d", len(frame.Payload), AckPayloadLen)
	}
	if got := binary.LittleEndian.Uint16(frame.Payload[0:2]); got != 123 {
		t.Fatalf("sender id = %d, want 123", got)
	}
	if frame.Payload[10] != 0xFF {
		t.Fatalf("payload[10] = %#x, want 0xFF", frame.Payload[10])
	}
}

func TestMissionSenderID_ReadsFixedOffset(t *testing.T) {
	payload := encodeMissionPayload(4242, 1, SubPhaseStart, 0, 0, 0)
	if got := MissionSenderID(payload); got != 4242 {
		t.Fatalf("MissionSenderID = %d, want 4242", got)
	}
}
