// Package roadmap parses, saves, and queries roadmap data files.
//
// The roadmap file (data/data.json by default) follows the schema embedded
// in package schema:
//
//	{
//	  "$schema": "./roadmap.schema.json",
//	  "Station D": {
//	    "P1 - Electrical Works": {
//	      "stages": [
//	        {
//	          "name": "Design",
//	          "start": "2024-01-01",
//	          "end": "2024-03-31",
//	          "status": "completed",
//	          "milestones": [
//	            {"name": "Design Review", "date": "2024-02-15", "status": "completed"}
//	          ]
//	        }
//	      ]
//	    }
//	  }
//	}
//
// Station names and portion labels are free-form text. The optional
// "$schema" key is an editor convention and is never treated as a station.
//
// # Status Values
//
//   - "completed": Work is finished
//   - "in_progress": Work is underway
//   - "planned": Work has not started
//   - "delayed": Work is behind schedule
//
// # Formats
//
// Files ending in .yaml or .yml are decoded as YAML and normalised to the
// same value tree as JSON. Saved files always use JSON with 2-space
// indentation and a trailing newline.
//
// The query helpers (StationStatus, MilestonesInRange, Delays,
// LongestStages) assume a document that already passed validation; stages
// or milestones with unparsable dates are skipped rather than reported.
package roadmap
