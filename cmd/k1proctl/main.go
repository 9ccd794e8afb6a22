package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/seagrayinc/k1pro/pkg/crt"
	"github.com/seagrayinc/k1pro/pkg/k1pro"
	"github.com/seagrayinc/k1pro/pkg/render"
)

var palette = []color.Color{
	color.RGBA{R: 0xFF, G: 0x00, B: 0x66, A: 0xFF},
	color.RGBA{R: 0x00, G: 0xAA, B: 0xFF, A: 0xFF},
	color.RGBA{R: 0xFF, G: 0x44, B: 0x00, A: 0xFF},
	color.RGBA{R: 0xFF, G: 0xAA, B: 0x00, A: 0xFF},
	color.RGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xFF},
	color.RGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF},
}

func main() {
	configPath := flag.String("config", "", "YAML file overriding device selectors and protocol timings")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	cfg := k1pro.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = k1pro.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	deck, err := k1pro.Connect(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer deck.Close()

	// Knobs 1..3 drive counters on buttons 1..3; the rest get static
	// labels.
	counters := [3]int{}
	for i := 0; i < 3; i++ {
		if err := showCounter(ctx, deck, i, counters[i], false); err != nil {
			fmt.Fprintf(os.Stderr, "button %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}
	for i := 3; i < 6; i++ {
		img, err := render.Button(fmt.Sprintf("B%d", i+1), "", palette[i])
		if err == nil {
			err = deck.SetButtonImage(ctx, i, img)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "button %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Println("k1-pro connected. Turn knobs to change counters, Ctrl+C to exit.")

	err = deck.Run(ctx, func(ev crt.Event) {
		switch e := ev.(type) {
		case crt.ButtonEvent:
			state := "released"
			if e.Pressed {
				state = "pressed"
			}
			fmt.Printf("button B%d %s\n", e.Button+1, state)

		case crt.KnobTurnEvent:
			i := e.Knob - 1
			if e.Clockwise {
				counters[i]++
			} else {
				counters[i]--
			}
			fmt.Printf("knob K%d -> %d\n", e.Knob, counters[i])
			if err := showCounter(ctx, deck, i, counters[i], true); err != nil {
				fmt.Fprintf(os.Stderr, "update button %d: %v\n", i+1, err)
			}

		case crt.KnobPressEvent:
			fmt.Printf("knob K%d pressed, counter reset\n", e.Knob)
			counters[e.Knob-1] = 0
			if err := showCounter(ctx, deck, e.Knob-1, 0, true); err != nil {
				fmt.Fprintf(os.Stderr, "update button %d: %v\n", e.Knob, err)
			}
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "event loop: %v\n", err)
		os.Exit(1)
	}
}

// showCounter renders a counter button. From inside the event loop the
// upload must be queued: the control endpoint cannot open while the
// loop holds the event endpoint.
func showCounter(ctx context.Context, deck *k1pro.Deck, index, value int, queued bool) error {
	img, err := render.Button(strconv.Itoa(value), fmt.Sprintf("K%d", index+1), palette[index])
	if err != nil {
		return err
	}
	if queued {
		return deck.QueueButtonImage(index, img)
	}
	return deck.SetButtonImage(ctx, index, img)
}
