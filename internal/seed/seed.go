// Package seed loads the studio's weekly class schedule.
package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

// Store is the part of the class repository the seeder needs.
type Store interface {
	Create(ctx context.Context, class *model.ClassSession) error
	List(ctx context.Context) ([]model.ClassSession, error)
	Reset(ctx context.Context) error
}

func class(day model.Weekday, name, description, trainer, start string, duration, capacity int,
	difficulty model.Difficulty, category model.Category) model.ClassSession {
	return model.ClassSession{
		Name:        name,
		Description: description,
		Trainer:     trainer,
		Day:         day,
		Time:        start,
		Duration:    duration,
		Capacity:    capacity,
		Difficulty:  difficulty,
		Category:    category,
	}
}

// Schedule returns the weekly timetable.
func Schedule() []model.ClassSession {
	return []model.ClassSession{
		// Monday
		class(model.Monday, "Strength Foundations", "Master compound lifts with professional coaching. Perfect for building a strong base.", "Mohammed Altaf", "06:00 AM", 60, 8, model.Beginner, model.Strength),
		class(model.Monday, "Power Hour", "Advanced powerlifting focused on squat, bench, and deadlift progression.", "Sarah Miller", "05:00 PM", 90, 6, model.Advanced, model.Strength),
		class(model.Monday, "HIIT Blast", "High-intensity interval training for fat loss and conditioning.", "Alex Chen", "06:30 PM", 45, 12, model.Intermediate, model.HIIT),

		// Tuesday
		class(model.Tuesday, "Olympic Lifting", "Learn snatch and clean & jerk techniques for explosive power.", "Viktor Novak", "06:30 AM", 75, 6, model.Intermediate, model.Strength),
		class(model.Tuesday, "Conditioning Circuit", "Full-body conditioning with kettlebells, ropes, and bodyweight exercises.", "Alex Chen", "05:30 PM", 60, 10, model.Beginner, model.Conditioning),
		class(model.Tuesday, "Personal Training", "1-on-1 session tailored to your specific goals and needs.", "Mohammed Altaf", "07:00 PM", 60, 1, model.Beginner, model.PersonalTraining),

		// Wednesday
		class(model.Wednesday, "Strength Foundations", "Master compound lifts with professional coaching. Perfect for building a strong base.", "Sarah Miller", "06:00 AM", 60, 8, model.Beginner, model.Strength),
		class(model.Wednesday, "Deadlift Mastery", "Focused session on deadlift technique, accessories, and progressive overload.", "Viktor Novak", "05:00 PM", 75, 8, model.Intermediate, model.Strength),
		class(model.Wednesday, "Metabolic Conditioning", "Build work capacity and endurance with challenging circuits.", "Alex Chen", "06:30 PM", 60, 12, model.Intermediate, model.Conditioning),

		// Thursday
		class(model.Thursday, "Bench Press Workshop", "Improve bench press technique and accessory work for upper body strength.", "Sarah Miller", "06:30 AM", 60, 8, model.Intermediate, model.Strength),
		class(model.Thursday, "Strongman Training", "Atlas stones, farmer carries, and functional strength movements.", "Viktor Novak", "05:30 PM", 75, 6, model.Advanced, model.Strength),
		class(model.Thursday, "HIIT Cardio", "Improve cardiovascular fitness with intense interval training.", "Alex Chen", "06:30 PM", 45, 12, model.Beginner, model.HIIT),

		// Friday
		class(model.Friday, "Squat Clinic", "Perfect your squat form and build lower body strength.", "Mohammed Altaf", "06:00 AM", 75, 8, model.Intermediate, model.Strength),
		class(model.Friday, "Full Body Strength", "Complete workout hitting all major muscle groups.", "Sarah Miller", "05:00 PM", 90, 10, model.Intermediate, model.Strength),
		class(model.Friday, "Friday Night Burn", "End the week strong with high-intensity conditioning.", "Alex Chen", "06:30 PM", 60, 12, model.Intermediate, model.HIIT),

		// Saturday
		class(model.Saturday, "Weekend Warriors", "Intensive strength session for those who train hard on weekends.", "Viktor Novak", "09:00 AM", 90, 10, model.Intermediate, model.Strength),
		class(model.Saturday, "Olympic Lifting Workshop", "Advanced techniques for competitive Olympic lifters.", "Sarah Miller", "11:00 AM", 90, 6, model.Advanced, model.Strength),
		class(model.Saturday, "Personal Training", "1-on-1 session tailored to your specific goals and needs.", "Mohammed Altaf", "02:00 PM", 60, 1, model.Beginner, model.PersonalTraining),

		// Sunday
		class(model.Sunday, "Recovery & Mobility", "Active recovery session focusing on mobility and flexibility.", "Alex Chen", "10:00 AM", 60, 15, model.Beginner, model.Conditioning),
		class(model.Sunday, "Powerlifting Focus", "Competition-style training for serious powerlifters.", "Viktor Novak", "02:00 PM", 120, 6, model.Advanced, model.Strength),
	}
}

// Result reports what Run inserted.
type Result struct {
	Inserted int
	ByDay    map[model.Weekday]int
	Skipped  bool
}

// Run inserts the schedule. Without reset it leaves a non-empty store alone;
// with reset it first deletes every booking and class.
func Run(ctx context.Context, store Store, reset bool) (Result, error) {
	if reset {
		if err := store.Reset(ctx); err != nil {
			return Result{}, fmt.Errorf("reset store: %w", err)
		}
		log.Printf("cleared existing classes and bookings")
	} else {
		existing, err := store.List(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list classes: %w", err)
		}
		if len(existing) > 0 {
			return Result{Skipped: true}, nil
		}
	}

	res := Result{ByDay: make(map[model.Weekday]int)}
	for _, c := range Schedule() {
		if err := c.Validate(); err != nil {
			return res, fmt.Errorf("seed class %q on %s: %w", c.Name, c.Day, err)
		}
		if err := store.Create(ctx, &c); err != nil {
			return res, fmt.Errorf("seed class %q on %s: %w", c.Name, c.Day, err)
		}
		res.Inserted++
		res.ByDay[c.Day]++
	}
	return res, nil
}
