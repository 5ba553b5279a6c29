package matroska

import "slices"

// DefaultMaxDecodeDelay bounds how many frames an encoder may hold back before
// display order and decode order must agree again.
const DefaultMaxDecodeDelay = 4

// Frame is one codec frame taken out of a block. Times are in segment ticks.
type Frame struct {
	DTS      int64
	Duration int64
	Flags    SampleFlags
	Offset   int64
	PTS      int64
	Size     int64
}

// FrameReorderEngine turns the frames of one track into finished frames with
// decode timestamps and durations.
//
// Laced and non-video tracks are FIFO: frames sharing a timestamp are held
// until a later timestamp arrives, then the gap is split between them.
//
// Unlaced video may reorder frames. The first frame is assumed to decode when
// it is displayed; after that the window of pending presentation timestamps is
// sorted and each successive smallest value becomes the decode timestamp of the
// next frame in file order. Frames are finished in file order once the decode
// timestamp equal to their presentation timestamp has a known successor.
type FrameReorderEngine struct {
	defaultDuration int64
	durationForDts  map[int64][]int64
	emit            func(Frame)
	forced          map[int64]int
	lastDts         int64
	lastDuration    int64
	maxDecodeDelay  int
	pending         []Frame
	ptsOrder        []int64
	reorder         bool
	started         bool

	// number of frames at the front of pending whose decode timestamp is known
	assigned int
}

func NewFrameReorderEngine(reorder bool, maxDecodeDelay int, emit func(Frame)) *FrameReorderEngine {
	if maxDecodeDelay < 1 {
		maxDecodeDelay = DefaultMaxDecodeDelay
	}

	return &FrameReorderEngine{
		durationForDts: map[int64][]int64{},
		emit:           emit,
		forced:         map[int64]int{},
		maxDecodeDelay: maxDecodeDelay,
		reorder:        reorder,
	}
}

func (e *FrameReorderEngine) SetDefaultDuration(duration int64) {
	e.defaultDuration = duration
}

// Window is the number of frames whose decode timestamp is still undecided,
// counting the latest decided one.
func (e *FrameReorderEngine) Window() int {
	return len(e.ptsOrder)
}

// Pending is the number of queued frames. A reordering track never queues
// more than maxDecodeDelay+1.
func (e *FrameReorderEngine) Pending() int {
	return len(e.pending)
}

// AddBlock queues the frames of one block; they all share a presentation time.
func (e *FrameReorderEngine) AddBlock(frames []Frame) {
	if len(frames) == 0 {
		return
	}

	if !e.reorder {
		e.addLaced(frames)

		return
	}

	for _, frame := range frames {
		frame.DTS = frame.PTS
		slot := frame.PTS

		if !e.started {
			e.started = true
			e.lastDts = frame.PTS
			e.assigned = 1
		} else if frame.PTS < e.lastDts {
			// Its display time already passed as a decode time. It takes the
			// current decode slot and finishes with a best-effort duration.
			slot = e.lastDts
			e.durationForDts[frame.PTS] = append(e.durationForDts[frame.PTS], e.fallbackDuration(frame))
		}

		e.pending = append(e.pending, frame)

		at, _ := slices.BinarySearch(e.ptsOrder, slot)
		e.ptsOrder = slices.Insert(e.ptsOrder, at, slot)

		for len(e.ptsOrder) > e.maxDecodeDelay+1 {
			e.step()
		}

		for len(e.pending) > e.maxDecodeDelay+1 {
			e.forceOldest()
		}
	}
}

func (e *FrameReorderEngine) addLaced(frames []Frame) {
	if len(e.pending) > 0 {
		delta := frames[0].PTS - e.pending[0].PTS
		if delta > 0 {
			durations := splitDuration(delta, len(e.pending))
			for i := range e.pending {
				e.pending[i].Duration = durations[i]
				e.finish(e.pending[i])
			}

			e.pending = e.pending[:0]
		}
	}

	for _, frame := range frames {
		frame.DTS = frame.PTS
		e.pending = append(e.pending, frame)
	}
}

// step decides the decode timestamp of the first undecided frame. The front
// of ptsOrder is always the latest decided decode timestamp.
func (e *FrameReorderEngine) step() {
	next := &e.pending[e.assigned]

	e.ptsOrder = e.ptsOrder[1:]
	next.DTS = e.ptsOrder[0]

	e.recordDuration(e.lastDts, next.DTS-e.lastDts)
	e.lastDts = next.DTS
	e.assigned++

	e.drain()
}

// forceOldest finishes the oldest frame before its successor in display order
// is known, so at most maxDecodeDelay+1 frames stay queued. Its decode
// timestamp is already decided; only the duration falls back.
func (e *FrameReorderEngine) forceOldest() {
	oldest := e.pending[0]
	oldest.Duration = e.fallbackDuration(oldest)

	e.forced[oldest.PTS]++
	e.pending = e.pending[1:]
	e.assigned--

	e.finish(oldest)
	e.drain()
}

// recordDuration stores the display duration of the frame presented at dts,
// unless that frame was already forced out.
func (e *FrameReorderEngine) recordDuration(dts int64, duration int64) {
	if count := e.forced[dts]; count > 0 {
		if count == 1 {
			delete(e.forced, dts)
		} else {
			e.forced[dts] = count - 1
		}

		return
	}

	e.durationForDts[dts] = append(e.durationForDts[dts], duration)
}

func (e *FrameReorderEngine) drain() {
	for e.assigned > 0 {
		oldest := e.pending[0]

		durations, found := e.durationForDts[oldest.PTS]
		if !found {
			return
		}

		oldest.Duration = durations[0]
		if oldest.Duration <= 0 {
			oldest.Duration = e.fallbackDuration(oldest)
		}

		if len(durations) == 1 {
			delete(e.durationForDts, oldest.PTS)
		} else {
			e.durationForDts[oldest.PTS] = durations[1:]
		}

		e.pending = e.pending[1:]
		e.assigned--

		e.finish(oldest)
	}
}

// Flush finishes every queued frame. Frames with no following timestamp keep
// the duration they were queued with, falling back to the default duration and
// then to the last finished duration.
func (e *FrameReorderEngine) Flush() {
	if e.reorder && e.started {
		for len(e.ptsOrder) >= 2 {
			e.step()
		}

		at := slices.IndexFunc(e.pending, func(frame Frame) bool {
			return frame.PTS == e.lastDts
		})
		if at >= 0 {
			e.recordDuration(e.lastDts, e.fallbackDuration(e.pending[at]))
		}

		e.drain()
	}

	for _, frame := range e.pending {
		frame.Duration = e.fallbackDuration(frame)
		e.finish(frame)
	}

	e.pending = e.pending[:0]
	e.ptsOrder = e.ptsOrder[:0]
	e.assigned = 0
	e.started = false
	clear(e.durationForDts)
	clear(e.forced)
}

func (e *FrameReorderEngine) fallbackDuration(frame Frame) int64 {
	switch {
	case frame.Duration > 0:
		return frame.Duration
	case e.defaultDuration > 0:
		return e.defaultDuration
	}

	return e.lastDuration
}

func (e *FrameReorderEngine) finish(frame Frame) {
	if frame.Duration > 0 {
		e.lastDuration = frame.Duration
	}

	e.emit(frame)
}

// splitDuration divides total ticks between count frames; the last
// total%count frames get one extra tick each.
func splitDuration(total int64, count int) []int64 {
	durations := make([]int64, count)
	if count == 0 {
		return durations
	}

	base := total / int64(count)
	remainder := int(total % int64(count))

	for i := range durations {
		durations[i] = base
		if i >= count-remainder {
			durations[i]++
		}
	}

	return durations
}
