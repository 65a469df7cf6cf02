// Command simulate stress-tests the booking engine in-process against the
// in-memory store. It runs two phases: a contention phase that fires every
// worker at the exact same slot and checks that exactly one booking wins,
// and a load phase where workers book random slots across many physicians.
// Point SIM_REDIS_ADDR at a Redis instance to exercise the distributed lock
// instead of the in-process one.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/redislock"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

type SimConfig struct {
	Workers     int
	Physicians  int
	Patients    int
	Rounds      int
	DurationMin int
	RedisAddr   string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&om.Success, 1)
	case errors.As(err, new(*schedule.SlotUnavailableError)):
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Simulator struct {
	config  SimConfig
	store   *schedule.MemStore
	engine  *schedule.BookingEngine
	planner *schedule.Planner

	physicians []uuid.UUID
	patients   []uuid.UUID
	locationID uuid.UUID
	date       time.Time

	contention OperationMetrics
	load       OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("booking simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: workers=%d physicians=%d patients=%d rounds=%d duration=%dmin",
		cfg.Workers, cfg.Physicians, cfg.Patients, cfg.Rounds, cfg.DurationMin)

	sim, err := newSimulator(cfg)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}

	ctx := context.Background()

	if err := sim.RunContention(ctx); err != nil {
		log.Fatalf("contention phase: %v", err)
	}
	sim.RunLoad(ctx)
	if err := sim.VerifySchedules(ctx); err != nil {
		log.Fatalf("schedule verification: %v", err)
	}

	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		Workers:     getInt("SIM_WORKERS", 50),
		Physicians:  getInt("SIM_PHYSICIANS", 20),
		Patients:    getInt("SIM_PATIENTS", 200),
		Rounds:      getInt("SIM_ROUNDS", 40),
		DurationMin: getInt("SIM_DURATION_MIN", 30),
		RedisAddr:   os.Getenv("SIM_REDIS_ADDR"),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 1 {
		return fmt.Errorf("SIM_WORKERS must be > 1")
	}
	if cfg.Physicians <= 0 || cfg.Patients <= 0 || cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_PHYSICIANS, SIM_PATIENTS and SIM_ROUNDS must be > 0")
	}
	if cfg.DurationMin <= 0 {
		return fmt.Errorf("SIM_DURATION_MIN must be > 0")
	}
	return nil
}

func newSimulator(cfg SimConfig) (*Simulator, error) {
	store := schedule.NewMemStore()
	logger := logging.New("warn")

	var locker redislock.Locker
	if cfg.RedisAddr != "" {
		client, err := redislock.NewRedisClient(cfg.RedisAddr, "", "")
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		locker = redislock.NewRedisScheduleLocker(client, 5*time.Second, 10)
		log.Printf("using redis lock at %s", cfg.RedisAddr)
	} else {
		locker = redislock.NewMemoryLocker()
		log.Println("using in-process lock")
	}

	sim := &Simulator{
		config:     cfg,
		store:      store,
		engine:     schedule.NewBookingEngine(store, locker, nil, nil, logger),
		planner:    schedule.NewPlanner(store, nil),
		locationID: uuid.New(),
	}

	// Next Monday, so every physician's single window applies.
	d := schedule.DateOnly(time.Now().AddDate(0, 0, 1))
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	sim.date = d

	ctx := context.Background()
	for i := 0; i < cfg.Physicians; i++ {
		physicianID := uuid.New()
		sim.physicians = append(sim.physicians, physicianID)
		_, err := store.InsertWindow(ctx, schedule.WeeklyWindow{
			PhysicianID: physicianID,
			LocationID:  sim.locationID,
			Weekday:     time.Monday,
			Start:       schedule.MustTimeOfDay("08:00"),
			End:         schedule.MustTimeOfDay("12:00"),
			Active:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("seed window: %w", err)
		}
	}

	for i := 0; i < cfg.Patients; i++ {
		p := schedule.Patient{
			ID:     uuid.New(),
			Name:   fmt.Sprintf("sim patient %d", i+1),
			Active: true,
		}
		store.PutPatient(p)
		sim.patients = append(sim.patients, p.ID)
	}

	return sim, nil
}

// RunContention fires every worker at the same physician, date and start
// time. Exactly one booking may succeed; anything else means the lock or
// the overlap check is broken.
func (s *Simulator) RunContention(ctx context.Context) error {
	physicianID := s.physicians[0]
	start := schedule.MustTimeOfDay("09:00")

	log.Printf("contention phase: %d workers, one slot", s.config.Workers)

	var wg sync.WaitGroup
	var booked int64
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			began := time.Now()
			_, err := s.engine.Book(ctx, schedule.BookRequest{
				PatientID:   s.patients[workerID%len(s.patients)],
				PhysicianID: physicianID,
				LocationID:  s.locationID,
				Date:        s.date,
				Start:       start,
				DurationMin: s.config.DurationMin,
			})
			s.contention.Record(time.Since(began), err)
			if err == nil {
				atomic.AddInt64(&booked, 1)
			} else if !errors.As(err, new(*schedule.SlotUnavailableError)) {
				log.Printf("worker %d: unexpected error: %v", workerID, err)
			}
		}(i)
	}
	wg.Wait()

	if booked != 1 {
		return fmt.Errorf("expected exactly 1 winner, got %d", booked)
	}
	log.Printf("contention phase ok: 1 winner, %d rejected", s.config.Workers-1)
	return nil
}

// RunLoad has every worker repeatedly pick a random physician, list the
// remaining open slots and try to book one of them. Collisions are expected
// and counted as conflicts.
func (s *Simulator) RunLoad(ctx context.Context) {
	log.Printf("load phase: %d workers x %d rounds", s.config.Workers, s.config.Rounds)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for round := 0; round < s.config.Rounds; round++ {
				physicianID := s.physicians[rng.Intn(len(s.physicians))]

				slots, err := s.planner.AvailableSlots(ctx, physicianID, s.date, s.config.DurationMin)
				if err != nil {
					log.Printf("worker %d: list slots: %v", workerID, err)
					continue
				}
				if len(slots) == 0 {
					continue
				}
				slot := slots[rng.Intn(len(slots))]

				began := time.Now()
				_, err = s.engine.Book(ctx, schedule.BookRequest{
					PatientID:   s.patients[rng.Intn(len(s.patients))],
					PhysicianID: physicianID,
					LocationID:  s.locationID,
					Date:        slot.Date,
					Start:       slot.Start,
					DurationMin: slot.DurationMin,
				})
				s.load.Record(time.Since(began), err)
			}
		}(i)
	}
	wg.Wait()
	log.Println("load phase complete")
}

// VerifySchedules re-reads every physician's day and fails on any pair of
// overlapping active appointments.
func (s *Simulator) VerifySchedules(ctx context.Context) error {
	total := 0
	for _, physicianID := range s.physicians {
		appts, err := s.store.GetAppointments(ctx, physicianID, s.date, schedule.BlockingStatuses...)
		if err != nil {
			return err
		}
		for i := 0; i < len(appts); i++ {
			for j := i + 1; j < len(appts); j++ {
				if appts[i].Overlaps(appts[j].Start, appts[j].End()) {
					return fmt.Errorf("physician %s: appointments %s and %s overlap",
						physicianID, appts[i].Code, appts[j].Code)
				}
			}
		}
		total += len(appts)
	}
	log.Printf("verification ok: %d appointments, no overlaps", total)
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Physicians: %d, Patients: %d\n", s.config.Physicians, s.config.Patients)
	fmt.Println()

	printOperationReport("Contention bookings", &s.contention)
	printOperationReport("Load bookings", &s.load)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Microsecond), min.Round(time.Microsecond), max.Round(time.Microsecond),
		p50.Round(time.Microsecond), p95.Round(time.Microsecond))
	fmt.Println()
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
