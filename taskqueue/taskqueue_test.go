package taskqueue_test

import (
	"testing"

	"github.com/feedcore/client/internal/tassert"
	"github.com/feedcore/client/taskqueue"
)

func TestExecuteDrainsInSubmissionOrder(t *testing.T) {
	q := taskqueue.New()
	var ran []int
	for i := 0; i < 3; i++ {
		i := i
		q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
			ran = append(ran, i)
			return taskqueue.Success
		}))
	}
	q.Execute()
	tassert.Fatal(t, len(ran) == 3 && ran[0] == 0 && ran[1] == 1 && ran[2] == 2,
		"unexpected run order %v", ran)
	tassert.Fatal(t, q.Empty(), "queue should drain fully")
}

func TestFailedTaskBlocksAndRetries(t *testing.T) {
	q := taskqueue.New()
	attempts := 0
	q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
		attempts++
		if attempts < 3 {
			return 0 // failure: stays queued, aborts the pass
		}
		return taskqueue.Success
	}))
	tailRan := false
	q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
		tailRan = true
		return taskqueue.Success
	}))

	q.Execute()
	tassert.Fatal(t, attempts == 1 && !tailRan, "a failing head task must block the pass")
	q.Execute()
	tassert.Fatal(t, attempts == 2 && !tailRan, "still blocked on the second pass")
	q.Execute()
	tassert.Fatal(t, attempts == 3 && tailRan, "third pass should succeed and unblock the tail")
	tassert.Fatal(t, q.Empty(), "queue should be empty")
}

func TestRetryLaterKeepsTaskAtFront(t *testing.T) {
	q := taskqueue.New()
	polls := 0
	q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
		polls++
		if polls < 2 {
			return taskqueue.Success | taskqueue.DontAdvance // retry later
		}
		return taskqueue.Success | taskqueue.PopMe
	}))
	q.Execute()
	tassert.Fatal(t, polls == 1, "one poll per pass")
	tassert.Fatal(t, !q.Empty(), "retry-later must keep the task queued")
	q.Execute()
	tassert.Fatal(t, polls == 2 && q.Empty(), "PopMe should remove the task")
}

func TestPopMeRemovesEvenOnFailure(t *testing.T) {
	q := taskqueue.New()
	q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
		return taskqueue.PopMe // failed, but asks to be dropped
	}))
	ran := false
	q.Add(taskqueue.TaskFunc(func(taskqueue.Command) taskqueue.ExecStatus {
		ran = true
		return taskqueue.Success
	}))
	q.Execute()
	tassert.Fatal(t, ran, "a popped failure must not block the tasks behind it")
	tassert.Fatal(t, q.Empty(), "queue should be empty")
}

func TestDestroyRunsFreeResourcesOnce(t *testing.T) {
	q := taskqueue.New()
	var cmds []taskqueue.Command
	for i := 0; i < 2; i++ {
		q.Add(taskqueue.TaskFunc(func(cmd taskqueue.Command) taskqueue.ExecStatus {
			cmds = append(cmds, cmd)
			return taskqueue.Success
		}))
	}
	q.Destroy()
	tassert.Fatal(t, len(cmds) == 2, "every remaining task runs once on destroy")
	for _, cmd := range cmds {
		tassert.Fatal(t, cmd == taskqueue.FreeResources, "destroy must pass FreeResources, got %v", cmd)
	}
	tassert.Fatal(t, q.Empty(), "destroyed queue is empty")
}
