package segment

// Merge collapses each segment into the previous output segment when both
// share a speaker and the gap between them is under three seconds. Merging
// extends the previous end time, joins the texts with a space and carries
// the words across. Single left-to-right pass over a start-time-ordered
// list; running it on an already-merged list changes nothing.
func Merge(in []*Segment) []*Segment {
	out := make([]*Segment, 0, len(in))
	var last *Segment

	for _, seg := range in {
		if last == nil || seg.Speaker != last.Speaker || seg.StartTime-last.EndTime >= speakerGapSeconds {
			out = append(out, seg)
			last = seg
			continue
		}

		last.EndTime = seg.EndTime
		last.Text += " " + seg.Text
		if len(seg.Words) > 0 {
			seg.Words[0].Text = " " + seg.Words[0].Text
		}
		last.Words = append(last.Words, seg.Words...)
	}

	return out
}
