package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/grpcx"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/client"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Context is handed to every command's Run.
type Context struct {
	API      string
	Token    string
	UserID   string
	Role     string
	Location *time.Location
	Out      io.Writer
	Now      func() time.Time
}

func newContext(api, token, user, role, tz string, out io.Writer) (*Context, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return &Context{API: api, Token: token, UserID: user, Role: role, Location: loc, Out: out, Now: time.Now}, nil
}

func (c *Context) client() (*client.Client, error) {
	return client.New(client.Options{BaseURL: c.API, Token: c.Token, UserID: c.UserID, Role: c.Role})
}

type PreviewCmd struct {
	File    string   `arg:"" help:"JSON file with an array of schedules ({day_of_week,start_time,end_time})." type:"existingfile"`
	Horizon int      `help:"Days to expand." default:"7"`
	At      string   `help:"Pretend the current time is this RFC3339 instant."`
	Booked  []string `help:"Booked instants (RFC3339)."`
}

func (cmd *PreviewCmd) Run(ctx *Context) error {
	raw, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}
	var rows []model.Schedule
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("parse %s: %w", cmd.File, err)
	}
	windows, err := availability.FromSchedules(rows)
	if err != nil {
		return err
	}
	now := ctx.Now()
	if cmd.At != "" {
		if now, err = time.Parse(time.RFC3339, cmd.At); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}
	booked := make([]time.Time, 0, len(cmd.Booked))
	for _, b := range cmd.Booked {
		t, err := time.Parse(time.RFC3339, b)
		if err != nil {
			return fmt.Errorf("--booked %q: %w", b, err)
		}
		booked = append(booked, t)
	}
	slots := availability.Generate(availability.Request{
		Windows:      windows,
		Booked:       booked,
		HorizonDays:  cmd.Horizon,
		SlotDuration: availability.DefaultSlotDuration,
		Now:          now,
		Location:     ctx.Location,
	})
	printSlots(ctx.Out, slots, ctx.Location)
	return nil
}

type SlotsCmd struct {
	Doctor  string `arg:"" help:"Doctor id."`
	Horizon int    `help:"Days to look ahead (1-14)." default:"7"`
}

func (cmd *SlotsCmd) Run(ctx *Context) error {
	c, err := ctx.client()
	if err != nil {
		return err
	}
	slots, err := c.Slots(context.Background(), cmd.Doctor, cmd.Horizon)
	if err != nil {
		return err
	}
	printSlots(ctx.Out, slots, ctx.Location)
	return nil
}

type BookCmd struct {
	Doctor  string `arg:"" help:"Doctor id."`
	At      string `help:"Slot start (RFC3339). Defaults to the first open slot."`
	Patient string `help:"Dependent id when booking for a family member."`
	Horizon int    `help:"Days to look ahead (1-14)." default:"14"`
}

func (cmd *BookCmd) Run(ctx *Context) error {
	c, err := ctx.client()
	if err != nil {
		return err
	}
	return cmd.run(context.Background(), ctx, c, c)
}

func (cmd *BookCmd) run(bg context.Context, ctx *Context, src booking.SlotSource, sub booking.Submitter) error {
	session := booking.NewSession(src, sub, ctx.UserID, cmd.Horizon)
	if cmd.Patient != "" {
		session.ForPatient(cmd.Patient)
	}
	if err := session.SelectDoctor(bg, cmd.Doctor); err != nil {
		return err
	}

	want := time.Time{}
	if cmd.At != "" {
		t, err := time.Parse(time.RFC3339, cmd.At)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		want = t
	}

	for attempt := 0; attempt < 2; attempt++ {
		pick, err := chooseSlot(session.View().Slots, want)
		if err != nil {
			return err
		}
		if err := session.SelectSlot(pick); err != nil {
			return err
		}
		appt, err := session.Submit(bg)
		if err == nil {
			fmt.Fprintf(ctx.Out, "booked appointment %d: %s\n", appt.ID, availability.LongLabel(appt.Time, ctx.Location))
			return nil
		}
		if !errors.Is(err, model.ErrSlotTaken) {
			return err
		}
		fmt.Fprintf(ctx.Out, "slot %s was taken, trying the next one\n", availability.LongLabel(pick, ctx.Location))
		want = time.Time{}
	}
	return model.ErrSlotTaken
}

// chooseSlot returns want when it is offered, or the earliest slot when want is zero.
func chooseSlot(slots []availability.Slot, want time.Time) (time.Time, error) {
	if len(slots) == 0 {
		return time.Time{}, errors.New("no open slots in the horizon")
	}
	if want.IsZero() {
		return slots[0].Start, nil
	}
	if !availability.Contains(slots, want) {
		return time.Time{}, fmt.Errorf("%w: %s", model.ErrSlotUnavailable, want.Format(time.RFC3339))
	}
	return want, nil
}

type HealthCmd struct {
	Addr    string        `help:"gRPC address." env:"CLINIC_GRPC_ADDR" default:"localhost:9093"`
	Service string        `help:"Health service name; empty checks the whole server." default:""`
	Timeout time.Duration `help:"Probe timeout." default:"3s"`
}

func (cmd *HealthCmd) Run(ctx *Context) error {
	conn, err := grpcx.Dial(cmd.Addr, grpcx.DialOptions{})
	if err != nil {
		return err
	}
	defer conn.Close()
	status, err := grpcx.CheckHealth(context.Background(), conn, cmd.Service, cmd.Timeout)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, status.String())
	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service is %s", status)
	}
	return nil
}

func printSlots(w io.Writer, slots []availability.Slot, loc *time.Location) {
	if len(slots) == 0 {
		fmt.Fprintln(w, "no open slots")
		return
	}
	for _, day := range availability.Days(slots) {
		label, err := availability.DayLabel(day, loc)
		if err != nil {
			label = day
		}
		labels := make([]string, 0)
		for _, s := range availability.ForDate(slots, day) {
			labels = append(labels, s.Label)
		}
		fmt.Fprintf(w, "%s (%s): %s\n", label, day, strings.Join(labels, ", "))
	}
}
