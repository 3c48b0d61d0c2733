// Package scheduler запускает фоновые задания по таймеру в процессе API.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignatzorin/finders-backend/internal/goroutine"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// Locker - распределённая блокировка; без неё задания защищены только внутри процесса.
type Locker interface {
	TryLock(ctx context.Context, name string) (release func(context.Context) error, ok bool, err error)
}

// Job - периодическое задание.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart - выполнить сразу при старте, не дожидаясь первого тика.
	RunOnStart bool
	Run        func(ctx context.Context, now time.Time) error
}

type jobState struct {
	Job
	running atomic.Bool
}

// Supervisor держит по одному флагу выполнения на задание:
// следующий тик пропускается, если предыдущий запуск ещё идёт.
type Supervisor struct {
	mu     sync.Mutex
	jobs   map[string]*jobState
	locker Locker
	now    func() time.Time
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewSupervisor(locker Locker) *Supervisor {
	return &Supervisor{
		jobs:   make(map[string]*jobState),
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register добавляет задание; вызывать до Start.
func (s *Supervisor) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{Job: job}
}

// Start запускает по горутине на задание.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	jobs := make([]*jobState, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	logger.WithComponent("scheduler").WithField("jobs", len(jobs)).Info("планировщик запущен")
}

// Stop останавливает тикеры и ждёт завершения текущих запусков.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	logger.WithComponent("scheduler").Info("планировщик остановлен")
}

func (s *Supervisor) loop(ctx context.Context, j *jobState) {
	defer s.wg.Done()

	interval := j.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if j.RunOnStart {
		s.execute(ctx, j)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, j)
		}
	}
}

// RunNow запускает задание вне расписания. Возвращает false, если оно уже выполняется.
func (s *Supervisor) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("scheduler: задание %q не зарегистрировано", name)
	}
	return s.execute(ctx, j)
}

func (s *Supervisor) execute(ctx context.Context, j *jobState) (ran bool, err error) {
	log := logger.WithComponent("scheduler").WithField("job", j.Name)

	if !j.running.CompareAndSwap(false, true) {
		log.Debug("предыдущий запуск ещё выполняется, пропуск")
		return false, nil
	}
	defer j.running.Store(false)

	if s.locker != nil {
		release, ok, lockErr := s.locker.TryLock(ctx, j.Name)
		if lockErr != nil {
			log.WithError(lockErr).Error("не удалось получить блокировку задания")
			return false, lockErr
		}
		if !ok {
			log.Debug("задание выполняет другой экземпляр")
			return false, nil
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				log.WithError(relErr).Warn("не удалось снять блокировку задания")
			}
		}()
	}

	started := time.Now()
	goroutine.Recover(func() {
		err = j.Run(ctx, s.now())
	})
	fields := logrus.Fields{"duration": time.Since(started).String()}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("задание завершилось с ошибкой")
		return true, err
	}
	log.WithFields(fields).Debug("задание выполнено")
	return true, nil
}
