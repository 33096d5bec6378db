package iips

import "encoding/binary"

// Packet IDs carried in a BinaryFrame's id byte (spec.md §6).
const (
	PacketHeartbeat uint8 = 0
	PacketStandby   uint8 = 1
	PacketSurvey    uint8 = 2
	PacketLine      uint8 = 3
	PacketRegion    uint8 = 4
	PacketFollow    uint8 = 5
	PacketStatus    uint8 = 128
	PacketAck       uint8 = 129
)

// Mission sub-phase byte, payload offset 10 (spec.md §4.6/§6).
const (
	SubPhaseStart    byte = 0
	SubPhaseWaypoint byte = 1
	SubPhaseEnd      byte = 2
	SubPhaseResponse byte = 0xFF
)

// Mission frame payload layout offsets (spec.md §4.6). Lat/lon are 8-byte
// radians, altitude is a 4-byte float to fit the fixed 31-byte payload.
const (
	missionOffSenderID   = 0
	missionOffTimestamp  = 2
	missionOffSubPhase   = 10
	missionOffLatitude   = 11
	missionOffLongitude  = 19
	missionOffAltitude   = 27
	missionWaypointLen   = 31
	missionFixedFrameLen = 11
)

// AckPayloadLen is the fixed 11-byte ack payload length (spec.md §4.6).
const AckPayloadLen = 11

// IsMissionPacket reports whether id identifies a mission-upload packet
// (LINE, REGION, or SURVEY), the three ids the assembler dispatches on.
func IsMissionPacket(id uint8) bool {
	switch id {
	case PacketLine, PacketRegion, PacketSurvey:
		return true
	default:
		return false
	}
}

// MissionSenderID reads the sender id a mission-upload payload carries at
// its fixed offset, used to address the ack for a START/WAYPOINT frame that
// the assembler accepted without completing the upload.
func MissionSenderID(payload []byte) uint16 {
	return binary.LittleEndian.Uint16(payload[missionOffSenderID : missionOffSenderID+2])
}
