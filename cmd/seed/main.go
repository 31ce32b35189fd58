// Command seed fills the database with generated demo content.
package main

import (
	"context"
	"flag"
	"log"

	"forum/internal/bootstrap"
	"forum/internal/config"
	"forum/internal/events"
	"forum/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numCommunities := flag.Int("communities", defaults.Communities, "Number of communities to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Maximum comments per post")
	votes := flag.Int("votes", defaults.VotesPerPost, "Maximum votes per post")
	seedValue := flag.Int64("seed", 0, "Random seed, 0 for a random run")
	shouldClean := flag.Bool("clean", false, "Delete existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	if *shouldClean {
		if err := seed.Clear(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		if err := bootstrap.Prepare(ctx, cfg, db); err != nil {
			log.Fatalf("Bootstrap after cleanup failed: %v", err)
		}
	}

	s := seed.New(seed.NewServices(db, events.Noop{}), seed.Options{
		Users:           *numUsers,
		Communities:     *numCommunities,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		VotesPerPost:    *votes,
		Seed:            *seedValue,
	})
	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d communities, %d posts, %d comments, %d votes",
		res.Users, res.Communities, res.Posts, res.Comments, res.Votes)
	log.Printf("All generated users have the password: %s", seed.Password)
}
