package iips

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/s1"
)

// UploadKind identifies which of the three mission packet ids produced a
// WaypointList (spec.md §4.6).
type UploadKind int

const (
	UploadLine UploadKind = iota
	UploadRegion
	UploadSurvey
)

func uploadKindForPacket(id uint8) UploadKind {
	switch id {
	case PacketRegion:
		return UploadRegion
	case PacketSurvey:
		return UploadSurvey
	default:
		return UploadLine
	}
}

// minPolygonWaypoints is the smallest waypoint count GetWayPoints accepts
// for a REGION or SURVEY upload; fewer than this and END is rejected with
// no ack (spec.md §4.6, Open Question: reject-silently resolution).
const minPolygonWaypoints = 4

// Waypoint is one vertex of an uploaded mission, lat/lon in degrees.
type Waypoint struct {
	Lat float64
	Lon float64
	Alt float64
}

// WaypointList is a completed mission upload, ready for plan emission.
type WaypointList struct {
	Kind      UploadKind
	SenderID  uint16
	Waypoints []Waypoint
}

// MissionError reports why a WAYPOINT or END frame was rejected: it
// produced no list and no ack.
type MissionError string

func (e MissionError) Error() string { return string(e) }

const (
	// ErrTooFewWaypoints is returned when a REGION/SURVEY upload ends with
	// fewer than minPolygonWaypoints vertices.
	ErrTooFewWaypoints MissionError = "mission: region/survey upload needs at least 4 waypoints"
	// ErrSenderMismatch is returned when a frame's sender id doesn't match
	// the id recorded at START.
	ErrSenderMismatch MissionError = "mission: sender id does not match upload in progress"
	// ErrNoUploadInProgress is returned for a WAYPOINT/END frame received
	// with no prior START.
	ErrNoUploadInProgress MissionError = "mission: waypoint/end received with no upload in progress"
)

// Assembler reassembles START/WAYPOINT/END mission-upload frames into
// WaypointLists. It holds exactly one upload in flight, mirroring
// IIPSComm::GetWayPoints; a new START always discards whatever was pending.
type Assembler struct {
	active    bool
	kind      UploadKind
	senderID  uint16
	lastStamp float64
	haveStamp bool
	points    []Waypoint
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed processes one mission-upload frame (id must satisfy IsMissionPacket,
// payload must be missionWaypointLen bytes). It returns a completed
// WaypointList on a successful END. The accepted bool reports whether the
// frame itself was accepted into the upload in progress — true for START,
// every appended WAYPOINT, and a successful END — independent of whether the
// list is complete; per spec.md §4.6 the reactor acks every accepted frame,
// not only the one that finishes the upload. accepted is false for a
// non-monotonic WAYPOINT (silently dropped) and for any error case.
func (a *Assembler) Feed(id uint8, payload []byte) (list *WaypointList, accepted bool, err error) {
	if len(payload) < missionWaypointLen {
		return nil, false, nil
	}
	senderID := binary.LittleEndian.Uint16(payload[missionOffSenderID : missionOffSenderID+2])
	timestamp := math.Float64frombits(binary.LittleEndian.Uint64(payload[missionOffTimestamp : missionOffTimestamp+8]))
	subPhase := payload[missionOffSubPhase]

	switch subPhase {
	case SubPhaseStart:
		a.active = true
		a.kind = uploadKindForPacket(id)
		a.senderID = senderID
		a.haveStamp = false
		a.points = a.points[:0]
		return nil, true, nil

	case SubPhaseWaypoint:
		if !a.active {
			return nil, false, ErrNoUploadInProgress
		}
		if senderID != a.senderID {
			return nil, false, ErrSenderMismatch
		}
		if a.haveStamp && timestamp <= a.lastStamp {
			// Non-monotonic timestamp: silently dropped, not appended, not acked.
			return nil, false, nil
		}
		a.lastStamp = timestamp
		a.haveStamp = true
		a.points = append(a.points, decodeWaypoint(payload))
		return nil, true, nil

	case SubPhaseEnd:
		if !a.active {
			return nil, false, ErrNoUploadInProgress
		}
		if senderID != a.senderID {
			return nil, false, ErrSenderMismatch
		}
		if (a.kind == UploadRegion || a.kind == UploadSurvey) && len(a.points) < minPolygonWaypoints {
			a.active = false
			return nil, false, ErrTooFewWaypoints
		}
		list := &WaypointList{
			Kind:      a.kind,
			SenderID:  a.senderID,
			Waypoints: append([]Waypoint(nil), a.points...),
		}
		a.active = false
		a.points = nil
		return list, true, nil

	default:
		return nil, false, nil
	}
}

func decodeWaypoint(payload []byte) Waypoint {
	latRad := math.Float64frombits(binary.LittleEndian.Uint64(payload[missionOffLatitude : missionOffLatitude+8]))
	lonRad := math.Float64frombits(binary.LittleEndian.Uint64(payload[missionOffLongitude : missionOffLongitude+8]))
	alt := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[missionOffAltitude : missionOffAltitude+4])))
	return Waypoint{
		Lat: s1.Angle(latRad).Degrees(),
		Lon: s1.Angle(lonRad).Degrees(),
		Alt: alt,
	}
}

// EncodeAck builds the 11-byte ack payload and wraps it as a BinaryFrame
// with id=PacketAck: bytes[0:2] echo the sender id, byte[10] is 0xFF
// (spec.md §4.6).
func EncodeAck(senderID uint16) ([]byte, error) {
	payload := make([]byte, AckPayloadLen)
	binary.LittleEndian.PutUint16(payload[0:2], senderID)
	payload[10] = 0xFF
	return EncodeBinary(PacketAck, payload)
}
