package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/drill-dungeon/internal/eventbus"
)

const (
	defaultNatsURL = "nats://127.0.0.1:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNatsURL, "NATS server URL")
		stream     = flag.String("stream", "DRILL_EVENTS", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Sources filter (comma-separated): combat, world")
		layer      = flag.Int("layer", -1, "Layer depth filter, -1 for all")
		duration   = flag.Duration("for", 10*time.Second, "How long to collect events (stats, tail without -follow)")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		history    = flag.Bool("history", false, "Start from the oldest event kept in the stream")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{URL: *natsURL, Stream: *stream, Replay: *history})
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, &TailOptions{
			Layer:  *layer,
			Limit:  *limit,
			For:    *duration,
			Follow: *follow,
		}); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(ctx, bus, filter, *layer, *duration); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

type TailOptions struct {
	Layer  int
	Limit  int
	For    time.Duration
	Follow bool
}

// tailEvents выводит события стрима по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		if opts.Layer >= 0 && ev.Layer != opts.Layer {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	var deadline <-chan time.Time
	if !opts.Follow {
		deadline = time.After(opts.For)
	}

	eventCount := 0
	for {
		select {
		case ev := <-events:
			printEvent(ev)
			eventCount++
			if !opts.Follow && eventCount >= opts.Limit {
				fmt.Printf("\n📊 Total events: %d\n", eventCount)
				return nil
			}
		case <-deadline:
			fmt.Printf("\n📊 Total events: %d\n", eventCount)
			return nil
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", eventCount)
			return nil
		}
	}
}

// showStats считает события по типам за заданный интервал
func showStats(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, layer int, d time.Duration) error {
	fmt.Println("📊 Event statistics")

	var mu sync.Mutex
	byType := make(map[string]int)
	byLayer := make(map[int]int)
	total := 0

	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		if layer >= 0 && ev.Layer != layer {
			return
		}
		mu.Lock()
		byType[ev.EventType]++
		byLayer[ev.Layer]++
		total++
		mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	start := time.Now()
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()

	fmt.Printf("Period: %s - %s\n", start.UTC().Format(timeFormat), time.Now().UTC().Format(timeFormat))
	fmt.Printf("Total events: %d\n\n", total)

	fmt.Println("By type:")
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-20s %6d\n", t, byType[t])
	}

	fmt.Println("\nBy layer:")
	layers := make([]int, 0, len(byLayer))
	for l := range byLayer {
		layers = append(layers, l)
	}
	sort.Ints(layers)
	for _, l := range layers {
		fmt.Printf("  depth %-14d %6d\n", l, byLayer[l])
	}
	return nil
}

func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %-8s %-18s tick=%-6d layer=%-3d %s\n",
		ev.Timestamp.UTC().Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.Tick,
		ev.Layer,
		string(ev.Payload),
	)
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
