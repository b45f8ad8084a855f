package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"notes-otp/internal/config"
	"notes-otp/internal/db"
	"notes-otp/internal/domain"
	"notes-otp/internal/repository"
	"notes-otp/internal/service"
)

// consoleSender muestra el codigo en la terminal en lugar de enviarlo por correo.
type consoleSender struct{}

func (consoleSender) SendOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	fmt.Printf("[OTP para %s] %s (vence %s)\n", toEmail, code, expiresAt.Local().Format(time.Kitchen))
	return nil
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrar: %v", err)
		}
	}

	userRepo := repository.NewPgUserRepository(pool)
	otpRepo := repository.NewPgOTPRepository(pool)
	noteRepo := repository.NewPgNoteRepository(pool)

	otpSvc := service.NewOTPService(logger, otpRepo, service.NewMemoryOTPLocker(), service.OTPConfig{
		TTL:          cfg.OTPTTL,
		SweepOnIssue: cfg.OTPSweepOnIssue,
	})
	authSvc := service.NewAuthService(logger, userRepo, otpSvc, consoleSender{})
	noteSvc := service.NewNoteService(noteRepo)

	if err := run(ctx, reader, authSvc, noteSvc); err != nil && !errors.Is(err, io.EOF) {
		log.Fatal(err)
	}
}

// run alterna acceso y menu hasta que la entrada se cierre.
func run(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService, noteSvc *service.NoteService) error {
	for {
		user, err := signInFlow(ctx, reader, authSvc)
		if errors.Is(err, io.EOF) {
			return err
		}
		if err != nil {
			fmt.Printf("Error de acceso: %v\n", err)
			continue
		}
		if err := runNotesMenu(ctx, reader, user, noteSvc); err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			log.Printf("error en menu: %v", err)
		}
	}
}

func signInFlow(ctx context.Context, reader *bufio.Reader, authSvc *service.AuthService) (domain.User, error) {
	fmt.Println("===== Notas =====")
	fmt.Print("Email: ")
	email, err := readLine(reader)
	if err != nil {
		return domain.User{}, err
	}
	if strings.EqualFold(email, "salir") || strings.EqualFold(email, "exit") {
		os.Exit(0)
	}

	if _, err := authSvc.RequestOTP(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("solicitar otp: %w", err)
	}

	for attempts := 0; attempts < 3; attempts++ {
		fmt.Print("Codigo OTP (R para reenviar): ")
		code, err := readLine(reader)
		if err != nil {
			return domain.User{}, err
		}
		if strings.EqualFold(code, "R") {
			if err := authSvc.ResendOTP(ctx, email); err != nil {
				return domain.User{}, fmt.Errorf("reenviar otp: %w", err)
			}
			continue
		}
		user, err := authSvc.VerifySignIn(ctx, email, code)
		if err == nil {
			fmt.Printf("Sesion iniciada como %s\n", user.Email)
			return user, nil
		}
		if errors.Is(err, service.ErrOTPInvalid) {
			fmt.Println("Codigo incorrecto.")
			continue
		}
		return domain.User{}, err
	}
	return domain.User{}, errors.New("demasiados intentos")
}

func runNotesMenu(ctx context.Context, reader *bufio.Reader, user domain.User, noteSvc *service.NoteService) error {
	for {
		fmt.Printf("\n--- Notas de %s ---\n", user.Email)
		fmt.Println("[1] Listar notas")
		fmt.Println("[2] Agregar nota")
		fmt.Println("[3] Borrar nota")
		fmt.Println("[4] Cerrar sesion")
		fmt.Println("[5] Salir")
		fmt.Print("Selecciona una opcion: ")

		choice, err := readLine(reader)
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			if _, err := listNotes(ctx, user, noteSvc); err != nil {
				fmt.Printf("Error listando notas: %v\n", err)
			}
		case "2":
			if err := addNoteFlow(ctx, reader, user, noteSvc); errors.Is(err, io.EOF) {
				return err
			} else if err != nil {
				fmt.Printf("Error creando nota: %v\n", err)
			} else {
				fmt.Println("Nota agregada.")
			}
		case "3":
			if err := deleteNoteFlow(ctx, reader, user, noteSvc); errors.Is(err, io.EOF) {
				return err
			} else if err != nil {
				fmt.Printf("Error borrando nota: %v\n", err)
			} else {
				fmt.Println("Nota borrada.")
			}
		case "4":
			return nil
		case "5":
			os.Exit(0)
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func listNotes(ctx context.Context, user domain.User, noteSvc *service.NoteService) ([]domain.Note, error) {
	notes, err := noteSvc.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		fmt.Println("No hay notas.")
		return notes, nil
	}
	for i, n := range notes {
		fmt.Printf("[%d] %s (%s)\n    %s\n", i+1, n.Heading, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Content)
	}
	return notes, nil
}

func addNoteFlow(ctx context.Context, reader *bufio.Reader, user domain.User, noteSvc *service.NoteService) error {
	fmt.Print("Titulo: ")
	heading, err := readLine(reader)
	if err != nil {
		return err
	}
	fmt.Print("Contenido: ")
	content, err := readLine(reader)
	if err != nil {
		return err
	}

	_, err = noteSvc.Create(ctx, user.ID, heading, content)
	return err
}

func deleteNoteFlow(ctx context.Context, reader *bufio.Reader, user domain.User, noteSvc *service.NoteService) error {
	notes, err := listNotes(ctx, user, noteSvc)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		return nil
	}
	fmt.Print("Numero de nota a borrar: ")
	line, err := readLine(reader)
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(notes) {
		return errors.New("seleccion invalida")
	}
	return noteSvc.Delete(ctx, user.ID, notes[idx-1].ID)
}

// readLine devuelve la linea sin espacios. Una ultima linea sin salto se acepta;
// io.EOF solo se reporta cuando no queda nada por leer.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
