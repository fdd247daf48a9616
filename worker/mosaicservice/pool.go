package mosaicservice

import (
	"fmt"
	"log"
)

var LibexecDir = "."

const DefaultQueueSizePerProcess = 200

// ProcessPool schedules mosaic tasks over a fixed set of worker
// subprocesses. Workers share one task queue; a crashed worker is
// restarted in place without draining the queue.
type ProcessPool struct {
	Pool      []*Process
	PoolSize  int
	TaskQueue chan *Task
	ErrorMsg  chan *ErrorMsg
}

func (p *ProcessPool) AddQueue(task *Task) {
	if len(p.TaskQueue) > DefaultQueueSizePerProcess*len(p.Pool)-10 {
		task.Error <- fmt.Errorf("Pool TaskQueue is full")
		return
	}
	p.TaskQueue <- task
}

func (p *ProcessPool) CreateProcess(executable string, memLimitMB int, confFile string, verbose bool) (*Process, error) {
	if len(executable) == 0 {
		executable = LibexecDir + "/tcvis-mosaic-process"
	}
	proc := NewProcess(p.TaskQueue, executable, memLimitMB, confFile, p.ErrorMsg, verbose)
	err := proc.Start()

	return proc, err
}

func CreateProcessPool(n int, executable string, memLimitMB int, confFile string, verbose bool) (*ProcessPool, error) {
	p := &ProcessPool{[]*Process{}, n, make(chan *Task, DefaultQueueSizePerProcess*n), make(chan *ErrorMsg)}

	go func() {
		for {
			select {
			case err := <-p.ErrorMsg:
				if err.Replace {
					log.Printf("Mosaic worker: %v, %v, restarting...", err.Address, err.Error)
					for ip, proc := range p.Pool {
						if err.Address == proc.Address {
							p.Pool[ip] = nil
							proc, err := p.CreateProcess(executable, memLimitMB, confFile, verbose)
							if err == nil {
								p.Pool[ip] = proc
							}
							break
						}
					}
				} else if verbose {
					log.Printf("Mosaic worker: %v, %v", err.Address, err.Error)
				}
			}
		}
	}()

	for i := 0; i < n; i++ {
		proc, err := p.CreateProcess(executable, memLimitMB, confFile, verbose)
		if err != nil {
			return nil, err
		}
		p.Pool = append(p.Pool, proc)
	}

	return p, nil
}
