package main

import (
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"keylights/config"
	"keylights/mapping"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "table":
		printTable()
	case "report":
		printReport()
	case "ports":
		listPorts()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Mapping Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  table   - Print the key-to-LED table for the saved calibration")
	fmt.Println("  report  - Print the validation report")
	fmt.Println("  ports   - List MIDI input ports")
}

func loadEngine() *mapping.Engine {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	eng, err := cfg.BuildEngine()
	if err != nil {
		fmt.Printf("Error building engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}

func printTable() {
	eng := loadEngine()
	layout := eng.Layout()
	effective := eng.EffectiveMapping()
	overrides := eng.Overrides()

	fmt.Printf("%d keys, LEDs %d-%d, %s mode\n\n",
		layout.KeyCount(), eng.Range().Start, eng.Range().End, eng.Distribution().Mode)

	for _, k := range layout.Keys {
		leds := effective[k.MIDINote]
		if len(leds) == 0 {
			continue
		}
		marker := " "
		if _, ok := overrides[k.MIDINote]; ok {
			marker = "*"
		}
		fmt.Printf("%s %-4s (%3d)  %v\n", marker, k.Name, k.MIDINote, leds)
	}
}

func printReport() {
	eng := loadEngine()
	rep := eng.Validate()

	s := rep.Statistics
	fmt.Printf("piano: %d keys   strip: %d LEDs   mode: %s   offset: %d\n",
		s.PianoSize, s.LEDCount, s.DistributionMode, s.BaseOffset)
	fmt.Printf("mapped: %d keys (%.0f%% coverage)\n", s.TotalKeysMapped, s.Coverage*100)

	fmt.Println("\nLEDs per key:")
	for n, count := range s.Histogram {
		fmt.Printf("  %d LEDs: %d keys\n", n, count)
	}

	if len(rep.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range rep.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}
	if len(rep.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range rep.Recommendations {
			fmt.Printf("  > %s\n", r)
		}
	}
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []string, 1)
	go func() {
		var names []string
		for _, p := range gomidi.GetInPorts() {
			names = append(names, p.String())
		}
		ch <- names
	}()

	select {
	case names := <-ch:
		for i, name := range names {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! MIDI backend is hung.")
	}
}
