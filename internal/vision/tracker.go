package vision

// Track is a live feature identity: its recent location history, the
// correlation template it is continued with, and the alternate template
// that periodically replaces it after proving itself.
type Track struct {
	// locations is a ring of past pixel positions; locationIdx always
	// points at the newest entry.
	locations   [MaxTrackLocations]Point
	locationIdx int

	// Signature is the reference template; AltSignature is the candidate
	// next template captured during refresh cycles.
	Signature    Signature
	AltSignature Signature

	// Age counts the frames the track has been continued since admission.
	Age int
}

// Location returns the track's newest position.
func (t *Track) Location() Point {
	return t.locations[t.locationIdx]
}

// History returns the track's past positions, newest first, up to
// min(Age+1, MaxTrackLocations) entries.
func (t *Track) History() []Point {
	n := t.Age + 1
	if n > MaxTrackLocations {
		n = MaxTrackLocations
	}
	out := make([]Point, 0, n)
	idx := t.locationIdx
	for i := 0; i < n; i++ {
		out = append(out, t.locations[idx])
		idx--
		if idx < 0 {
			idx = MaxTrackLocations - 1
		}
	}
	return out
}

// pushLocation advances the ring and records a new position.
func (t *Track) pushLocation(p Point) {
	t.locationIdx = (t.locationIdx + 1) % MaxTrackLocations
	t.locations[t.locationIdx] = p
}

// Tracker maintains the set of live tracks across frames. It owns a W*H
// occupancy bitmap whose set bits are exactly the current locations of
// live tracks; admission of new detections is refused inside the exclusion
// zone around any occupied pixel.
type Tracker struct {
	settings Settings
	width    int
	height   int

	tracks   []*Track
	occupied []bool
	frames   int
}

// NewTracker creates an empty tracker for images of the given dimensions.
func NewTracker(width, height int, settings Settings) *Tracker {
	return &Tracker{
		settings: settings,
		width:    width,
		height:   height,
		occupied: make([]bool, width*height),
	}
}

// Tracks returns the live track set. The slice is reused across frames;
// callers must not retain it past the next Update.
func (t *Tracker) Tracks() []*Track {
	return t.tracks
}

// Occupied reports whether the occupancy bit at (x, y) is set.
func (t *Tracker) Occupied(x, y int) bool {
	return t.occupied[y*t.width+x]
}

// Update advances the track set by one frame: existing tracks are
// continued by correlation search over the normalized image, failures are
// retired, templates are refreshed on their cycle, and new detector
// candidates are admitted subject to spatial exclusion.
//
// A frame that continues no tracks and admits no candidates is a normal
// outcome, never an error.
func (t *Tracker) Update(norm []float32, candidates []Candidate) {
	if t.frames == 0 {
		// First frame: nothing to continue, admit detections directly.
		t.admit(candidates)
		t.frames++
		return
	}

	t.continueTracks(norm)
	t.refreshTemplates(norm)
	t.admit(candidates)
	t.frames++
}

// continueTracks runs the correlation search for every live track and
// retires the ones that fail.
func (t *Tracker) continueTracks(norm []float32) {
	refresh := t.settings.TemplateUpdateFrames
	survivors := t.tracks[:0]

	for _, track := range t.tracks {
		current := track.Location()
		primaryPt, primaryScore := track.Signature.searchBest(norm, t.width, t.height, current)

		var newLoc Point
		accepted := false

		if (track.Age+1)%(2*refresh) == 0 {
			// Cross-check frame: the alternate template must agree with
			// the primary on where the feature moved, and both searches
			// must clear the correlation threshold. On success the
			// alternate becomes the new primary.
			altPt, altScore := track.AltSignature.searchBest(norm, t.width, t.height, current)
			if primaryScore >= t.settings.CorrelationThreshold &&
				altScore >= t.settings.CorrelationThreshold &&
				pointDistance(primaryPt, altPt) < t.settings.TemplateUpdateDistance {
				track.Signature = track.AltSignature
				newLoc = altPt
				accepted = true
			}
		} else {
			if primaryScore >= t.settings.CorrelationThreshold {
				newLoc = primaryPt
				accepted = true
			}
		}

		if !accepted {
			t.setOccupied(current, false)
			continue
		}

		t.setOccupied(current, false)
		t.setOccupied(newLoc, true)
		track.pushLocation(newLoc)
		track.Age++
		survivors = append(survivors, track)
	}

	// Clear retired tail so dropped tracks are collectable.
	for i := len(survivors); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = survivors
}

// refreshTemplates captures a fresh alternate template for every track
// whose age has reached a refresh cycle. The alternate then ages one full
// cycle before the cross-check either promotes it or drops the track.
func (t *Tracker) refreshTemplates(norm []float32) {
	refresh := t.settings.TemplateUpdateFrames
	for _, track := range t.tracks {
		if track.Age > 0 && track.Age%refresh == 0 && (track.Age+1)%(2*refresh) != 0 {
			loc := track.Location()
			track.AltSignature = extractSignature(norm, t.width, t.height, loc.X, loc.Y)
		}
	}
}

// admit walks the candidate list in order and creates tracks for the
// candidates whose exclusion neighbourhood is unoccupied, until the track
// set is full.
func (t *Tracker) admit(candidates []Candidate) {
	for i := range candidates {
		if len(t.tracks) >= t.settings.MaxTrackedFeatures {
			return
		}
		c := &candidates[i]
		if t.neighbourhoodOccupied(c.Location) {
			continue
		}

		track := &Track{
			Signature:    c.Signature,
			AltSignature: c.Signature,
		}
		track.locations[0] = c.Location
		t.tracks = append(t.tracks, track)
		t.setOccupied(c.Location, true)
	}
}

// neighbourhoodOccupied scans the exclusion square around p.
func (t *Tracker) neighbourhoodOccupied(p Point) bool {
	for dy := -SuppressionRange; dy <= SuppressionRange; dy++ {
		sy := clampInt(p.Y+dy, t.height)
		for dx := -SuppressionRange; dx <= SuppressionRange; dx++ {
			sx := clampInt(p.X+dx, t.width)
			if t.occupied[sy*t.width+sx] {
				return true
			}
		}
	}
	return false
}

func (t *Tracker) setOccupied(p Point, v bool) {
	t.occupied[p.Y*t.width+p.X] = v
}
