// Package planemit turns a completed iips.WaypointList into a QGC-compatible
// .plan file, the JSON format IIPSComm::SaveWaypointsToJsonFile writes: a
// "mission" object with simple waypoint items for a LINE upload, or a
// "geoFence" polygon for REGION/SURVEY uploads.
package planemit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kstaniek/iips-core/internal/iips"
)

// Emitter hands a completed upload off for persistence or forwarding.
type Emitter interface {
	Emit(list iips.WaypointList) (path string, err error)
}

// RecordingEmitter is a test double that stores every emitted list in
// memory instead of touching the filesystem.
type RecordingEmitter struct {
	Lists []iips.WaypointList
	Path  string
}

// Emit appends list to Lists and returns the emitter's configured Path
// (or "recorded" if unset).
func (r *RecordingEmitter) Emit(list iips.WaypointList) (string, error) {
	r.Lists = append(r.Lists, list)
	if r.Path != "" {
		return r.Path, nil
	}
	return "recorded", nil
}

// FileEmitter writes each completed upload to its own timestamped .plan
// file under Dir.
type FileEmitter struct {
	Dir     string
	NowName func(iips.WaypointList) string
}

// NewFileEmitter returns a FileEmitter writing into dir. nowName produces
// the file's base name (without extension); callers typically close over a
// clock since this package must not call time.Now itself to stay testable.
func NewFileEmitter(dir string, nowName func(iips.WaypointList) string) *FileEmitter {
	return &FileEmitter{Dir: dir, NowName: nowName}
}

// Emit writes list as a .plan file and returns its path.
func (f *FileEmitter) Emit(list iips.WaypointList) (string, error) {
	doc := buildPlanDocument(list)
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("planemit: marshal plan: %w", err)
	}
	name := "mission"
	if f.NowName != nil {
		name = f.NowName(list)
	}
	path := filepath.Join(f.Dir, name+".plan")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("planemit: write %s: %w", path, err)
	}
	return path, nil
}

// planDocument mirrors the top-level shape QGroundControl expects of a
// .plan file.
type planDocument struct {
	FileType            string         `json:"fileType"`
	GeoFence            *geoFence      `json:"geoFence,omitempty"`
	GroundStation       string         `json:"groundStation"`
	Mission             *missionObject `json:"mission,omitempty"`
	Version             int            `json:"version"`
}

type geoFence struct {
	Polygons []polygon `json:"polygons"`
	Version  int       `json:"version"`
}

type polygon struct {
	Inclusion bool        `json:"inclusion"`
	Polygon   [][]float64 `json:"polygon"`
	Version   int         `json:"version"`
}

type missionObject struct {
	CruiseSpeed          float64       `json:"cruiseSpeed"`
	Items                []missionItem `json:"items"`
	PlannedHomePosition  []float64     `json:"plannedHomePosition,omitempty"`
	Version              int           `json:"version"`
}

type missionItem struct {
	AutoContinue bool      `json:"autoContinue"`
	Command      int       `json:"command"`
	DoJumpID     int       `json:"doJumpId"`
	Frame        int       `json:"frame"`
	Params       []float64 `json:"params"`
	Type         string    `json:"type"`
}

const (
	mavFrameGlobalRelativeAlt = 3
	mavCmdNavWaypoint         = 16
)

func buildPlanDocument(list iips.WaypointList) planDocument {
	doc := planDocument{
		FileType:      "Plan",
		GroundStation: "QGroundControl",
		Version:       1,
	}
	switch list.Kind {
	case iips.UploadRegion, iips.UploadSurvey:
		// waypoints[0] is home, not a fence vertex: SaveWaypointsToJsonFile's
		// polygon loop starts at i=1, same as the mission-items loop below.
		ring := make([][]float64, 0, len(list.Waypoints))
		for _, wp := range list.Waypoints[homeOffset(list.Waypoints):] {
			ring = append(ring, []float64{wp.Lat, wp.Lon})
		}
		doc.GeoFence = &geoFence{
			Polygons: []polygon{{Inclusion: true, Polygon: ring, Version: 1}},
			Version:  2,
		}
	default:
		// waypoints[0] is home, not a mission item: SaveWaypointsToJsonFile's
		// `for (int i = 1; i < listWaypoints.size(); i++)` excludes it.
		rest := list.Waypoints[homeOffset(list.Waypoints):]
		items := make([]missionItem, 0, len(rest))
		for i, wp := range rest {
			items = append(items, missionItem{
				AutoContinue: true,
				Command:      mavCmdNavWaypoint,
				DoJumpID:     i + 1,
				Frame:        mavFrameGlobalRelativeAlt,
				Params:       []float64{0, 0, 0, 0, wp.Lat, wp.Lon, wp.Alt},
				Type:         "SimpleItem",
			})
		}
		var home []float64
		if len(list.Waypoints) > 0 {
			home = []float64{list.Waypoints[0].Lat, list.Waypoints[0].Lon, list.Waypoints[0].Alt}
		}
		doc.Mission = &missionObject{
			CruiseSpeed:         5,
			Items:               items,
			PlannedHomePosition: home,
			Version:             2,
		}
	}
	return doc
}

// homeOffset returns 1 when waypoints has a home position to skip, 0 when
// the list is empty (nothing to skip, and waypoints[1:] would panic).
func homeOffset(waypoints []iips.Waypoint) int {
	if len(waypoints) == 0 {
		return 0
	}
	return 1
}
