package restore

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/mdarezzo/massundelete/internal/backend"
	rtest "github.com/mdarezzo/massundelete/internal/test"
)

func taskAt(path string) *Task {
	return NewTask(backend.DeletedPath{Path: path, DeletionID: "d1"})
}

func TestNewTaskDepth(t *testing.T) {
	for _, c := range []struct {
		path  string
		depth int
	}{
		{"file", 0},
		{"dir/file", 1},
		{"a/b/c/file", 3},
	} {
		rtest.Equals(t, c.depth, taskAt(c.path).Depth)
	}
}

func TestQueueOrdersByDepth(t *testing.T) {
	q := NewQueue()
	q.Push(taskAt("a/b/c/file"))
	q.Push(taskAt("file"))
	q.Push(taskAt("a/b/file"))
	q.Push(taskAt("a/file"))

	var depths []int
	for q.Len() > 0 {
		depths = append(depths, q.Pop().Depth)
	}
	rtest.Equals(t, []int{0, 1, 2, 3}, depths)
}

func TestQueueStableWithinDepth(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 10; i++ {
		q.Push(taskAt(fmt.Sprintf("dir/file%d", i)))
	}

	for i := 0; i < 10; i++ {
		rtest.Equals(t, fmt.Sprintf("dir/file%d", i), q.Pop().Path)
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := NewQueue()
	rtest.Assert(t, q.Pop() == nil, "expected nil from empty queue")

	q.Push(taskAt("file"))
	q.Pop()
	rtest.Assert(t, q.Pop() == nil, "expected nil after draining")
}

// Spec scenario: with 20 depth-1, 50 depth-2 and 30 depth-3 tasks inserted in
// random order, every depth-1 task is served before any depth-3 task.
func TestQueueScenarioMixedDepths(t *testing.T) {
	var tasks []*Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, taskAt(fmt.Sprintf("a/s%d", i)))
	}
	for i := 0; i < 50; i++ {
		tasks = append(tasks, taskAt(fmt.Sprintf("a/b/m%d", i)))
	}
	for i := 0; i < 30; i++ {
		tasks = append(tasks, taskAt(fmt.Sprintf("a/b/c/d%d", i)))
	}

	rnd := rand.New(rand.NewSource(42))
	rnd.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })

	q := NewQueue()
	for _, task := range tasks {
		q.Push(task)
	}

	lastDepth1 := -1
	firstDepth3 := -1
	for i := 0; q.Len() > 0; i++ {
		switch q.Pop().Depth {
		case 1:
			lastDepth1 = i
		case 3:
			if firstDepth3 == -1 {
				firstDepth3 = i
			}
		}
	}

	rtest.Equals(t, 19, lastDepth1)
	rtest.Assert(t, firstDepth3 > lastDepth1,
		"depth-3 task served at %d, before last depth-1 at %d", firstDepth3, lastDepth1)
}

func TestQueueRequeueKeepsPriority(t *testing.T) {
	q := NewQueue()
	q.Push(taskAt("a/b/deep"))
	shallow := taskAt("top")
	q.Push(shallow)

	got := q.Pop()
	rtest.Equals(t, "top", got.Path)

	// a requeued shallow task jumps ahead of deeper pending work
	q.Push(got)
	rtest.Equals(t, "top", q.Pop().Path)
	rtest.Equals(t, "a/b/deep", q.Pop().Path)
}
