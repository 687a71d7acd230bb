package supervisor

import (
	"errors"
	"os/exec"

	"go.uber.org/zap"
)

type msg interface{ isSupervisorMsg() }

type childStarted struct{ c child }

type childExited struct {
	pid int
	err error
}

type listAlive struct {
	role  Role
	reply chan []int
}

type awaitExit struct {
	pids []int
	done chan struct{}
}

func (childStarted) isSupervisorMsg() {}
func (childExited) isSupervisorMsg()  {}
func (listAlive) isSupervisorMsg()    {}
func (awaitExit) isSupervisorMsg()    {}

// loop owns the child table. Every exit, query and wait goes through it.
func (s *Supervisor) loop() {
	children := make(map[int]*child)
	var waiters []awaitExit

	exited := func(pids []int) bool {
		for _, pid := range pids {
			if c, ok := children[pid]; ok && !c.exited {
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case childStarted:
				c := msg.c
				children[c.PID] = &c
				s.log.Debug("child started", zap.String("role", string(c.Role)), zap.Int("pid", c.PID),
					zap.Int("team", c.Team+1), zap.Int("player", c.Player+1))

			case childExited:
				c, ok := children[msg.pid]
				if !ok {
					break
				}
				c.exited = true
				s.logExit(c, msg.err)

				pending := waiters[:0]
				for _, w := range waiters {
					if exited(w.pids) {
						close(w.done)
						continue
					}
					pending = append(pending, w)
				}
				waiters = pending

			case listAlive:
				var pids []int
				for pid, c := range children {
					if c.Role == msg.role && !c.exited {
						pids = append(pids, pid)
					}
				}
				msg.reply <- pids

			case awaitExit:
				if exited(msg.pids) {
					close(msg.done)
					break
				}
				waiters = append(waiters, msg)
			}
		}
	}
}

func (s *Supervisor) logExit(c *child, err error) {
	fields := []zap.Field{zap.String("role", string(c.Role)), zap.Int("pid", c.PID)}
	if c.Role == RoleWorker {
		fields = append(fields, zap.Int("team", c.Team+1), zap.Int("player", c.Player+1))
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		s.log.Info("child exited", fields...)
	case errors.As(err, &exitErr):
		s.log.Warn("child exited abnormally", append(fields, zap.String("status", exitErr.String()))...)
	default:
		s.log.Warn("child wait failed", append(fields, zap.Error(err))...)
	}
}
