package timeline

import "sort"

// FrameState is everything active at one composed frame.
type FrameState struct {
	Frame int
	// Scene is the span drawn on top; during a transition it is the incoming one.
	Scene int
	Local int

	Transition *ActiveTransition
	Voice      *ActiveVoice
	Cues       []ActiveCue

	MusicVolume float64
}

// ActiveTransition describes the outgoing span blended under the current one.
type ActiveTransition struct {
	From      int
	FromLocal int
	// Progress runs from 0 (only the outgoing span) toward 1 (only the incoming span).
	Progress float64
	Style    Style
}

type ActiveVoice struct {
	Span   int
	Offset int  // frame within the narration clip
	Speech bool // false during the trailing buffer
}

type ActiveCue struct {
	Cue    int // index into Layout.Cues
	Offset int // frame within the cue
}

// Resolve returns the state of frame f. It reads only the layout, so any frame
// can be resolved without resolving any other. ok is false outside [0, TotalFrames).
func (l *Layout) Resolve(f int) (state FrameState, ok bool) {
	if l.Empty() || f < 0 || f >= l.TotalFrames {
		return FrameState{Frame: f, Scene: -1}, false
	}

	// Starts are strictly increasing: every span has at least one content frame.
	i := sort.Search(len(l.Spans), func(i int) bool { return l.Spans[i].Start > f }) - 1
	span := l.Spans[i]
	state = FrameState{
		Frame: f,
		Scene: i,
		Local: f - span.Start,
	}

	if i > 0 {
		prev := l.Spans[i-1]
		if tr := prev.Transition; tr != nil && f < tr.Start+tr.Frames {
			state.Transition = &ActiveTransition{
				From:      i - 1,
				FromLocal: f - prev.Start,
				Progress:  float64(f-tr.Start) / float64(tr.Frames),
				Style:     tr.Style,
			}
		}
	}

	if v, found := l.voiceAt(f); found {
		state.Voice = &v
	}
	state.Cues = l.cuesAt(f)
	state.MusicVolume = l.Bed.VolumeAt(f)
	return state, true
}

func (l *Layout) voiceAt(f int) (ActiveVoice, bool) {
	j := sort.Search(len(l.Voice), func(j int) bool { return l.Voice[j].Offset > f }) - 1
	if j < 0 {
		return ActiveVoice{}, false
	}
	v := l.Voice[j]
	if f >= v.End() {
		return ActiveVoice{}, false
	}
	off := f - v.Offset
	return ActiveVoice{Span: j, Offset: off, Speech: off < v.VoiceFrames}, true
}

func (l *Layout) cuesAt(f int) []ActiveCue {
	var out []ActiveCue
	for i, c := range l.Cues {
		if f >= c.Start && f < c.End() {
			out = append(out, ActiveCue{Cue: i, Offset: f - c.Start})
		}
	}
	return out
}
