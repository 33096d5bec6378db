package main

import (
	"fmt"
	"time"

	"github.com/kstaniek/iips-core/internal/iips"
)

// planNameFor derives a .plan file base name from the upload kind, the
// sender id and the UTC second it was emitted. Two uploads of the same kind
// from the same sender within one second get the same name.
func planNameFor(list iips.WaypointList) string {
	kind := "line"
	switch list.Kind {
	case iips.UploadRegion:
		kind = "region"
	case iips.UploadSurvey:
		kind = "survey"
	}
	return fmt.Sprintf("%s-%d-%s", kind, list.SenderID, time.Now().UTC().Format("20060102T150405"))
}
