package iips

import (
	"encoding/binary"
	"math"
)

// StatusRecordLen is the fixed packed size of a StatusRecord (spec.md §3).
const StatusRecordLen = 71

// StatusRecord is the telemetry record QGC-side sends to the ground
// information system, wrapped as the payload of a BinaryFrame with
// id=PacketStatus. Layout is little-endian throughout, field-by-field —
// spec.md §9 explicitly forbids relying on host struct layout.
type StatusRecord struct {
	ID        uint16
	Timestamp float64 // seconds
	Status    uint8   // 0 = fault, 1 = normal
	Lat       float64 // radians
	Lon       float64 // radians
	Alt       float64 // meters
	Roll      float32 // radians
	Pitch     float32 // radians
	Yaw       float32 // radians
	VNorth    float32 // m/s
	VEast     float32 // m/s
	VDown     float32 // m/s
	GyroX     float32 // rad/s
	GyroY     float32 // rad/s
	GyroZ     float32 // rad/s
}

// Pack serializes r into its 71-byte little-endian wire layout.
func (r StatusRecord) Pack() []byte {
	buf := make([]byte, StatusRecordLen)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], r.ID)
	le.PutUint64(buf[2:10], math.Float64bits(r.Timestamp))
	buf[10] = r.Status
	le.PutUint64(buf[11:19], math.Float64bits(r.Lat))
	le.PutUint64(buf[19:27], math.Float64bits(r.Lon))
	le.PutUint64(buf[27:35], math.Float64bits(r.Alt))
	le.PutUint32(buf[35:39], math.Float32bits(r.Roll))
	le.PutUint32(buf[39:43], math.Float32bits(r.Pitch))
	le.PutUint32(buf[43:47], math.Float32bits(r.Yaw))
	le.PutUint32(buf[47:51], math.Float32bits(r.VNorth))
	le.PutUint32(buf[51:55], math.Float32bits(r.VEast))
	le.PutUint32(buf[55:59], math.Float32bits(r.VDown))
	le.PutUint32(buf[59:63], math.Float32bits(r.GyroX))
	le.PutUint32(buf[63:67], math.Float32bits(r.GyroY))
	le.PutUint32(buf[67:71], math.Float32bits(r.GyroZ))
	return buf
}

// UnpackStatusRecord parses the 71-byte wire layout back into a StatusRecord.
func UnpackStatusRecord(buf []byte) (StatusRecord, bool) {
	if len(buf) != StatusRecordLen {
		return StatusRecord{}, false
	}
	le := binary.LittleEndian
	var r StatusRecord
	r.ID = le.Uint16(buf[0:2])
	r.Timestamp = math.Float64frombits(le.Uint64(buf[2:10]))
	r.Status = buf[10]
	r.Lat = math.Float64frombits(le.Uint64(buf[11:19]))
	r.Lon = math.Float64frombits(le.Uint64(buf[19:27]))
	r.Alt = math.Float64frombits(le.Uint64(buf[27:35]))
	r.Roll = math.Float32frombits(le.Uint32(buf[35:39]))
	r.Pitch = math.Float32frombits(le.Uint32(buf[39:43]))
	r.Yaw = math.Float32frombits(le.Uint32(buf[43:47]))
	r.VNorth = math.Float32frombits(le.Uint32(buf[47:51]))
	r.VEast = math.Float32frombits(le.Uint32(buf[51:55]))
	r.VDown = math.Float32frombits(le.Uint32(buf[55:59]))
	r.GyroX = math.Float32frombits(le.Uint32(buf[59:63]))
	r.GyroY = math.Float32frombits(le.Uint32(buf[63:67]))
	r.GyroZ = math.Float32frombits(le.Uint32(buf[67:71]))
	return r, true
}

// EncodeStatusFrame packs r and wraps it as a BinaryFrame with id=PacketStatus.
func EncodeStatusFrame(r StatusRecord) ([]byte, error) {
	return EncodeBinary(PacketStatus, r.Pack())
}
