package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/beatcrate/backend/internal/catalog"
	"github.com/beatcrate/backend/internal/database"
	"github.com/beatcrate/backend/internal/models"
)

// FTPIngestService polls the label drop FTP directory and registers new
// audio files as pending tracks for curation. Files are keyed by their
// relative path, so a restart never double-imports.
type FTPIngestService struct {
	host     string
	user     string
	password string
	dropDir  string
	interval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewFTPIngestService creates an ingest service for the given drop server
func NewFTPIngestService(host, user, password, dropDir string, pollMinutes int) *FTPIngestService {
	if pollMinutes <= 0 {
		pollMinutes = 15
	}
	return &FTPIngestService{
		host:     host,
		user:     user,
		password: password,
		dropDir:  dropDir,
		interval: time.Duration(pollMinutes) * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins polling the drop directory
func (s *FTPIngestService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	log.Printf("FTPIngestService started (host: %s, dir: %s, interval: %v)",
		s.host, s.dropDir, s.interval)
}

// Stop stops the ingest service
func (s *FTPIngestService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	log.Println("FTPIngestService stopped")
}

func (s *FTPIngestService) run() {
	defer s.wg.Done()

	// First poll after a short delay so startup migrations settle
	select {
	case <-time.After(30 * time.Second):
		s.poll()
	case <-s.stopChan:
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *FTPIngestService) poll() {
	if database.DB == nil {
		return
	}

	conn, err := ftp.Dial(s.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		log.Printf("FTPIngest: Connection to %s failed: %v", s.host, err)
		return
	}
	defer conn.Quit()

	if err := conn.Login(s.user, s.password); err != nil {
		log.Printf("FTPIngest: Login failed: %v", err)
		return
	}

	entries, err := conn.List(s.dropDir)
	if err != nil {
		log.Printf("FTPIngest: Listing %s failed: %v", s.dropDir, err)
		return
	}

	imported := 0
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile || !catalog.IsAudioFile(entry.Name) {
			continue
		}
		key := strings.TrimSuffix(s.dropDir, "/") + "/" + entry.Name

		var count int64
		if err := database.DB.Model(&models.Track{}).
			Where("storage_key = ?", key).Count(&count).Error; err != nil {
			log.Printf("FTPIngest: Dedup lookup failed for %s: %v", key, err)
			continue
		}
		if count > 0 {
			continue
		}

		parsed, _ := catalog.ParseFilename(entry.Name)
		track := models.Track{
			Title:      parsed.Title,
			Artist:     parsed.Artist,
			MixName:    parsed.Mix,
			StorageKey: key,
			FileSize:   int64(entry.Size),
			Status:     models.TrackStatusPending,
		}
		if err := database.DB.Create(&track).Error; err != nil {
			log.Printf("FTPIngest: Registering %s failed: %v", key, err)
			continue
		}
		imported++
	}

	if imported > 0 {
		log.Printf("FTPIngest: Imported %d new tracks from %s", imported, s.dropDir)
		database.InvalidateTrackCache()
	}
}
