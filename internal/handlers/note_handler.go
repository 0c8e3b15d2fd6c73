package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"notetaker/internal/middleware"
	"notetaker/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// NoteHandler handles HTTP requests for notes. All routes are registered
// behind the session middleware, so the acting user is always known.
type NoteHandler struct {
	service  *services.NoteService
	validate *validator.Validate
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(service *services.NoteService) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the note routes on a session-protected router.
func (h *NoteHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/dashboard", h.HandleDashboard)

	noteRoutes := router.Group("/notes")
	noteRoutes.Get("/", h.HandleListNotes)
	noteRoutes.Get("/recent", h.HandleRecentNotes)
	noteRoutes.Post("/", h.HandleCreateNote)
	noteRoutes.Get("/:id", h.HandleGetNote)
	noteRoutes.Put("/:id", h.HandleUpdateNote)
	noteRoutes.Delete("/:id", h.HandleDeleteNote)
}

// NoteRequest represents the request body for creating or updating a note.
type NoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// HandleDashboard returns the user's notes (optionally filtered by the
// search query parameter) together with their total note count.
func (h *NoteHandler) HandleDashboard(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	term := c.Query("search")

	notes, err := h.service.Search(userID, term)
	if err != nil {
		log.Printf("Error loading dashboard for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load dashboard",
		})
	}

	count, err := h.service.Count(userID)
	if err != nil {
		log.Printf("Error counting notes for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not load dashboard",
		})
	}

	return c.JSON(fiber.Map{
		"notes":  notes,
		"total":  count,
		"search": term,
	})
}

// HandleListNotes returns all of the user's notes.
func (h *NoteHandler) HandleListNotes(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	notes, err := h.service.List(userID)
	if err != nil {
		log.Printf("Error listing notes for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve notes",
		})
	}
	return c.JSON(notes)
}

// HandleRecentNotes returns the user's most recently updated notes.
func (h *NoteHandler) HandleRecentNotes(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	limit := c.QueryInt("limit", services.DefaultRecentLimit)

	notes, err := h.service.Recent(userID, limit)
	if err != nil {
		log.Printf("Error loading recent notes for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve recent notes",
		})
	}
	return c.JSON(notes)
}

// HandleCreateNote creates a new note owned by the user.
func (h *NoteHandler) HandleCreateNote(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req NoteRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing note request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	note, err := h.service.Create(userID, req.Title, req.Content)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": validationErr.Message,
			})
		}
		log.Printf("Error creating note for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to save note. Please try again.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(note)
}

// HandleGetNote returns a single note. A note that does not exist and a
// note owned by another user both yield the same 404.
func (h *NoteHandler) HandleGetNote(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	noteID, err := parseNoteID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid note ID",
		})
	}

	note, err := h.service.Get(noteID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Note not found",
			})
		}
		log.Printf("Error getting note %d for user %d: %v", noteID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve note",
		})
	}
	return c.JSON(note)
}

// HandleUpdateNote updates a note's title and content.
func (h *NoteHandler) HandleUpdateNote(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	noteID, err := parseNoteID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid note ID",
		})
	}

	var req NoteRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing note request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	note, err := h.service.Update(noteID, userID, req.Title, req.Content)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": validationErr.Message,
			})
		case errors.Is(err, services.ErrNoteNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Note not found",
			})
		default:
			log.Printf("Error updating note %d for user %d: %v", noteID, userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to save note. Please try again.",
			})
		}
	}
	return c.JSON(note)
}

// HandleDeleteNote removes a note.
func (h *NoteHandler) HandleDeleteNote(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	noteID, err := parseNoteID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid note ID",
		})
	}

	if err := h.service.Delete(noteID, userID); err != nil {
		if errors.Is(err, services.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Note not found",
			})
		}
		log.Printf("Error deleting note %d for user %d: %v", noteID, userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete note. Please try again.",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Note deleted successfully",
	})
}

func parseNoteID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
