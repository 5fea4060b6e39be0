package render

import "testing"

func TestRecorderRecordsOps(t *testing.T) {
	r := NewRecorder()
	r.FillRect(1, 2, 3, 4, "#fff")
	r.StrokeRect(1, 2, 3, 4, "#000")
	r.DrawImage("a.png", 5, 6, 7, 8)
	r.FillText("hello", 9, 10, "12px sans-serif", "#333")

	ops := r.Ops()
	want := []string{"fillRect", "strokeRect", "drawImage", "fillText"}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d", len(ops), len(want))
	}
	for i, k := range want {
		if ops[i].Kind != k {
			t.Errorf("ops[%d].Kind = %q, want %q", i, ops[i].Kind, k)
		}
	}
}

func TestRecorderClearStartsNewFrame(t *testing.T) {
	r := NewRecorder()
	r.FillRect(0, 0, 10, 10, "#fff")
	r.Clear(0, 0, 100, 100)
	r.DrawImage("a.png", 0, 0, 10, 10)

	ops := r.Ops()
	if len(ops) != 2 {
		t.Fatalf("got %d ops after clear, want 2", len(ops))
	}
	if ops[0].Kind != "clear" || ops[1].Kind != "drawImage" {
		t.Errorf("frame = %q,%q, want clear,drawImage", ops[0].Kind, ops[1].Kind)
	}
}

func TestRecorderOpsReturnsCopy(t *testing.T) {
	r := NewRecorder()
	r.FillRect(0, 0, 1, 1, "#fff")

	ops := r.Ops()
	ops[0].Kind = "mutated"

	if got := r.Ops()[0].Kind; got != "fillRect" {
		t.Errorf("internal ops mutated through the returned slice: %q", got)
	}
}
