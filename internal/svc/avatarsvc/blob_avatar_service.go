package avatarsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/repo/blob"
	"github.com/mkrupp/fintrack/internal/util/encoding"
)

// ownerIndex points an owner at the content blob of its avatar.
type ownerIndex struct {
	ID       domain.BlobID `json:"id"`
	MIMEType string        `json:"mime_type"`
}

// BlobAvatarService implements AvatarService on blob repositories.
// Avatar content is stored once per distinct content hash and shared between
// owners; a backref blob lists the owners of each content blob so the content
// can be pruned once nobody uses it. Resized variants are cached by width.
type BlobAvatarService struct {
	dataRepo    blob.Repository
	backrefRepo blob.Repository
	ownerRepo   blob.Repository
	cacheRepo   blob.Repository
	cfg         AvatarConfig
	log         logging.Logger
}

var _ AvatarService = (*BlobAvatarService)(nil)

// NewBlobAvatarService creates the repositories of the service:
//   - avatars: the image content, keyed by content hash
//   - backrefs: the owners of each content blob
//   - owners: the avatar index of each owner
//   - cache: resized variants
func NewBlobAvatarService(
	ctx context.Context,
	repoFactory blob.RepositoryFactory,
	cfg AvatarConfig,
) (*BlobAvatarService, error) {
	if _, err := getInterpolatorByName(cfg.Interpolator); err != nil {
		return nil, err
	}

	repos := make([]blob.Repository, 0, 4)

	for _, spec := range [][2]string{
		{"avatars", "bin"},
		{"backrefs", "txt"},
		{"owners", "json"},
		{"cache", "bin"},
	} {
		repo, err := repoFactory(ctx, spec[0], spec[1])
		if err != nil {
			return nil, fmt.Errorf("new %s repository: %w", spec[0], err)
		}

		repos = append(repos, repo)
	}

	return &BlobAvatarService{
		dataRepo:    repos[0],
		backrefRepo: repos[1],
		ownerRepo:   repos[2],
		cacheRepo:   repos[3],
		cfg:         cfg,
		log:         logging.GetLogger("svc.avatarsvc.blob_avatar_service"),
	}, nil
}

// ContentID returns the blob id of avatar content.
func ContentID(data []byte) domain.BlobID {
	sum := blake3.Sum256(data)

	return domain.BlobID(encoding.EncodeCrockfordB32LC(sum[:]))
}

func (avatarSvc *BlobAvatarService) MaxSize() int64 {
	return avatarSvc.cfg.MaxSize
}

func (avatarSvc *BlobAvatarService) Store(
	ctx context.Context,
	ownerID string,
	filename string,
	data []byte,
) (avatar *domain.Avatar, err error) {
	log := avatarSvc.log.With(logging.Group("avatar", "owner", ownerID, "filename", filename, "size", len(data)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "avatar store failed", "error", err)
		} else {
			log.DebugContext(ctx, "avatar stored", "id", avatar.ID)
		}
	}()

	if int64(len(data)) > avatarSvc.MaxSize() {
		return nil, domain.ErrAvatarTooLarge
	}

	mimeType, err := DetectType(filename, data)
	if err != nil {
		return nil, err
	}

	dataID := ContentID(data)

	unlock, err := avatarSvc.ownerRepo.Lock(ctx, domain.BlobID(ownerID), true)
	if err != nil {
		return nil, fmt.Errorf("lock owner: %w", err)
	}
	defer unlock()

	previous, err := avatarSvc.fetchIndex(ctx, ownerID)
	if err != nil && !errors.Is(err, domain.ErrNoAvatar) {
		return nil, err
	}

	if previous == nil || previous.ID != dataID {
		if err := avatarSvc.retain(ctx, dataID, ownerID, data); err != nil {
			return nil, err
		}
	}

	if err := avatarSvc.storeIndex(ctx, ownerID, ownerIndex{ID: dataID, MIMEType: mimeType}); err != nil {
		return nil, err
	}

	if previous != nil && previous.ID != dataID {
		if err := avatarSvc.release(ctx, previous.ID, ownerID); err != nil {
			return nil, fmt.Errorf("release previous: %w", err)
		}
	}

	return &domain.Avatar{ID: dataID, OwnerID: ownerID, MIMEType: mimeType, Data: data}, nil
}

func (avatarSvc *BlobAvatarService) Fetch(
	ctx context.Context,
	ownerID string,
	width int,
) (avatar *domain.Avatar, err error) {
	log := avatarSvc.log.With(logging.Group("avatar", "owner", ownerID, "width", width))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "avatar fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "avatar fetched", "id", avatar.ID)
		}
	}()

	unlock, err := avatarSvc.ownerRepo.Lock(ctx, domain.BlobID(ownerID), false)
	if err != nil {
		return nil, fmt.Errorf("lock owner: %w", err)
	}
	defer unlock()

	index, err := avatarSvc.fetchIndex(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	unlockData, err := avatarSvc.backrefRepo.Lock(ctx, index.ID, false)
	if err != nil {
		return nil, fmt.Errorf("lock data: %w", err)
	}
	defer unlockData()

	dataBlob, err := avatarSvc.dataRepo.Fetch(ctx, index.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch data: %w", err)
	}

	avatar = &domain.Avatar{ID: index.ID, OwnerID: ownerID, MIMEType: index.MIMEType, Data: dataBlob.Body}

	if width <= 0 {
		return avatar, nil
	}

	width = min(width, avatarSvc.cfg.MaxWidth)

	// Never scale up
	if original, err := imageWidth(avatar.Data); err != nil {
		return nil, err
	} else if width >= original {
		return avatar, nil
	}

	resized, err := avatarSvc.fetchResized(ctx, avatar, width)
	if err != nil {
		return nil, err
	}

	avatar.Data = resized

	return avatar, nil
}

func (avatarSvc *BlobAvatarService) fetchResized(ctx context.Context, avatar *domain.Avatar, width int) ([]byte, error) {
	cacheID := domain.BlobID(string(avatar.ID) + "_" + strconv.Itoa(width))

	unlock, err := avatarSvc.cacheRepo.Lock(ctx, cacheID, false)
	if err != nil {
		return nil, fmt.Errorf("lock cache: %w", err)
	}
	defer unlock()

	if avatarSvc.cacheRepo.Exists(ctx, cacheID) {
		cacheBlob, err := avatarSvc.cacheRepo.Fetch(ctx, cacheID)
		if err != nil {
			return nil, fmt.Errorf("fetch cache: %w", err)
		}

		return cacheBlob.Body, nil
	}

	resized, err := resizeImage(avatar.Data, avatar.MIMEType, width, avatarSvc.cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("resize image: %w", err)
	}

	if err := avatarSvc.cacheRepo.Store(ctx, domain.NewBlob(cacheID, resized)); err != nil {
		return nil, fmt.Errorf("store cache: %w", err)
	}

	return resized, nil
}

func (avatarSvc *BlobAvatarService) Delete(ctx context.Context, ownerID string) (err error) {
	log := avatarSvc.log.With(logging.Group("avatar", "owner", ownerID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "avatar delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "avatar deleted")
		}
	}()

	unlock, err := avatarSvc.ownerRepo.Lock(ctx, domain.BlobID(ownerID), true)
	if err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	defer unlock()

	index, err := avatarSvc.fetchIndex(ctx, ownerID)
	if err != nil {
		return err
	}

	if err := avatarSvc.ownerRepo.Delete(ctx, domain.BlobID(ownerID)); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}

	return avatarSvc.release(ctx, index.ID, ownerID)
}

func (avatarSvc *BlobAvatarService) fetchIndex(ctx context.Context, ownerID string) (*ownerIndex, error) {
	indexBlob, err := avatarSvc.ownerRepo.Fetch(ctx, domain.BlobID(ownerID))
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil, domain.ErrNoAvatar
	} else if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}

	var index ownerIndex
	if err := json.Unmarshal(indexBlob.Body, &index); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}

	return &index, nil
}

func (avatarSvc *BlobAvatarService) storeIndex(ctx context.Context, ownerID string, index ownerIndex) error {
	body, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := avatarSvc.ownerRepo.Store(ctx, domain.NewBlob(domain.BlobID(ownerID), body)); err != nil {
		return fmt.Errorf("store index: %w", err)
	}

	return nil
}

// retain stores the content blob unless it exists and adds ownerID to its backrefs.
func (avatarSvc *BlobAvatarService) retain(ctx context.Context, dataID domain.BlobID, ownerID string, data []byte) error {
	unlock, err := avatarSvc.backrefRepo.Lock(ctx, dataID, true)
	if err != nil {
		return fmt.Errorf("lock data: %w", err)
	}
	defer unlock()

	if !avatarSvc.dataRepo.Exists(ctx, dataID) {
		if err := avatarSvc.dataRepo.Store(ctx, domain.NewBlob(dataID, data)); err != nil {
			return fmt.Errorf("store data: %w", err)
		}
	}

	backrefs, err := avatarSvc.fetchBackrefs(ctx, dataID)
	if err != nil {
		return err
	}

	if slices.Contains(backrefs, ownerID) {
		return nil
	}

	return avatarSvc.storeBackrefs(ctx, dataID, append(backrefs, ownerID))
}

// release removes ownerID from the backrefs of a content blob and prunes the
// content together with its cached variants once no owner is left.
func (avatarSvc *BlobAvatarService) release(ctx context.Context, dataID domain.BlobID, ownerID string) error {
	unlock, err := avatarSvc.backrefRepo.Lock(ctx, dataID, true)
	if err != nil {
		return fmt.Errorf("lock data: %w", err)
	}
	defer unlock()

	backrefs, err := avatarSvc.fetchBackrefs(ctx, dataID)
	if err != nil {
		return err
	}

	backrefs = slices.DeleteFunc(backrefs, func(id string) bool { return id == ownerID })

	if len(backrefs) > 0 {
		return avatarSvc.storeBackrefs(ctx, dataID, backrefs)
	}

	avatarSvc.log.DebugContext(ctx, "avatar content pruned", "id", dataID)

	if err := avatarSvc.backrefRepo.Delete(ctx, dataID); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		return fmt.Errorf("delete backrefs: %w", err)
	}

	if err := avatarSvc.dataRepo.Delete(ctx, dataID); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		return fmt.Errorf("delete data: %w", err)
	}

	if err := avatarSvc.cacheRepo.DeleteAll(ctx, dataID, "_*"); err != nil {
		return fmt.Errorf("delete cache: %w", err)
	}

	return nil
}

func (avatarSvc *BlobAvatarService) fetchBackrefs(ctx context.Context, dataID domain.BlobID) ([]string, error) {
	if !avatarSvc.backrefRepo.Exists(ctx, dataID) {
		return nil, nil
	}

	backrefBlob, err := avatarSvc.backrefRepo.Fetch(ctx, dataID)
	if err != nil {
		return nil, fmt.Errorf("fetch backrefs: %w", err)
	}

	var backrefs []string

	for _, id := range bytes.Split(backrefBlob.Body, []byte("\n")) {
		if len(id) > 0 {
			backrefs = append(backrefs, string(id))
		}
	}

	return backrefs, nil
}

func (avatarSvc *BlobAvatarService) storeBackrefs(ctx context.Context, dataID domain.BlobID, backrefs []string) error {
	body := []byte(strings.Join(backrefs, "\n"))

	if err := avatarSvc.backrefRepo.Store(ctx, domain.NewBlob(dataID, body)); err != nil {
		return fmt.Errorf("store backrefs: %w", err)
	}

	return nil
}
