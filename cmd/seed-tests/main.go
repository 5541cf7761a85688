package main

import (
	"context"
	"fmt"
	"time"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/algolearn/algolearn-backend/internal/database"
	"github.com/algolearn/algolearn-backend/internal/logger"
	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/algolearn/algolearn-backend/internal/repository"
	"github.com/algolearn/algolearn-backend/internal/service"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

type seedQuestion struct {
	prompt      string
	options     []string
	correct     int
	explanation string
}

type seedTest struct {
	title     string
	topic     string
	week      int
	limit     int
	questions []seedQuestion
}

var seedTests = []seedTest{
	{
		title: "Arrays & Two Pointers", topic: "arrays", week: 1, limit: 15,
		questions: []seedQuestion{
			{
				prompt:      "What is the time complexity of accessing an element by index in an array?",
				options:     []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
				correct:     0,
				explanation: "Arrays are contiguous, so the address is computed directly from the index.",
			},
			{
				prompt:  "Which technique finds a pair summing to a target in a sorted array in O(n)?",
				options: []string{"Binary search per element", "Two pointers", "Hash map", "Sorting again"},
				correct: 1,
			},
			{
				prompt:      "What does the sliding window technique optimize?",
				options:     []string{"Random access", "Contiguous subarray scans", "Tree traversal", "Graph search"},
				correct:     1,
				explanation: "It reuses work between overlapping windows instead of rescanning.",
			},
		},
	},
	{
		title: "Linked Lists", topic: "linked-lists", week: 2, limit: 15,
		questions: []seedQuestion{
			{
				prompt:  "What is the time complexity of inserting at the head of a singly linked list?",
				options: []string{"O(1)", "O(log n)", "O(n)", "O(n^2)"},
				correct: 0,
			},
			{
				prompt:      "Which algorithm detects a cycle in a linked list with O(1) extra space?",
				options:     []string{"Breadth-first search", "Floyd's tortoise and hare", "Merge sort", "Binary search"},
				correct:     1,
				explanation: "Two pointers at different speeds must meet inside a cycle.",
			},
			{
				prompt:  "Reversing a singly linked list iteratively requires how many pointers?",
				options: []string{"One", "Two", "Three", "Four"},
				correct: 2,
			},
		},
	},
	{
		title: "Stacks & Queues", topic: "stacks-queues", week: 3, limit: 10,
		questions: []seedQuestion{
			{
				prompt:  "Which data structure evaluates balanced parentheses naturally?",
				options: []string{"Queue", "Stack", "Heap", "Trie"},
				correct: 1,
			},
			{
				prompt:      "A queue built from two stacks has what amortized dequeue cost?",
				options:     []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
				correct:     0,
				explanation: "Each element is pushed and popped at most twice across both stacks.",
			},
		},
	},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	testService := service.NewTestService(testRepo, questionRepo, rdb, log)

	fmt.Println("=== Seeding Weekly Tests ===")

	// Reuse or create the seed author.
	author, err := userRepo.GetByEmail(ctx, "seed-admin@algolearn.dev")
	if err == pgx.ErrNoRows {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("seed-admin-password"), cfg.BcryptCost)
		if hashErr != nil {
			log.Fatal().Err(hashErr).Msg("Failed to hash seed password")
		}
		author = &model.User{
			Email:        "seed-admin@algolearn.dev",
			Name:         "Seed Admin",
			PasswordHash: string(hash),
			Role:         model.RoleAdmin,
		}
		if err := userRepo.Create(ctx, author); err != nil {
			log.Fatal().Err(err).Msg("Failed to create seed admin")
		}
		fmt.Printf("Created seed admin with ID: %d\n", author.ID)
	} else if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up seed admin")
	}

	for _, st := range seedTests {
		test := &model.Test{
			Title:            st.title,
			Topic:            st.topic,
			Week:             st.week,
			TimeLimitMinutes: st.limit,
			MarksPerQuestion: 1,
			NegativeMarking:  0.25,
			AuthorID:         author.ID,
		}
		if err := testService.Create(ctx, test); err != nil {
			log.Fatal().Err(err).Str("title", st.title).Msg("Failed to create test")
		}

		questions := make([]model.Question, len(st.questions))
		for i, q := range st.questions {
			questions[i] = model.Question{
				TestID:        test.ID,
				Prompt:        q.prompt,
				Options:       q.options,
				CorrectOption: q.correct,
				Explanation:   q.explanation,
				OrderNum:      i + 1,
			}
		}
		if err := testService.ReplaceQuestions(ctx, test.ID, author.ID, questions); err != nil {
			log.Fatal().Err(err).Str("title", st.title).Msg("Failed to add questions")
		}

		if err := testService.Publish(ctx, test.ID, author.ID); err != nil {
			log.Fatal().Err(err).Str("title", st.title).Msg("Failed to publish test")
		}
		fmt.Printf("Published '%s' (week %d, %d questions)\n", st.title, st.week, len(st.questions))
	}

	fmt.Println("Seeding complete")
}
