package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/config"
	"storefront/internal/models"
)

const maxImageSize = 8 << 20

var allowedImageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// UploadProductImage stores a multipart cover image under the upload dir and
// records its public path on the product. A replaced image is removed from
// disk.
func UploadProductImage(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/:id/image"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			respondError(c, route, NewValidationError("image file is required"))
			return
		}
		if file.Size > maxImageSize {
			respondError(c, route, NewValidationError("image exceeds the size limit"))
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if _, ok := allowedImageExts[ext]; !ok {
			respondError(c, route, NewValidationError("unsupported image type"))
			return
		}

		name, err := randomFileName(ext)
		if err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		if err := os.MkdirAll(config.AppEnv.UploadDir, 0o755); err != nil {
			respondError(c, route, NewInternalError(err))
			return
		}

		target := filepath.Join(config.AppEnv.UploadDir, name)
		if err := c.SaveUploadedFile(file, target); err != nil {
			log.Println("[UPLOAD] [ERROR] save failed:", err)
			respondError(c, route, NewInternalError(err))
			return
		}

		publicPath := path.Join("/public/uploads", name)

		var previous models.Product
		err = db.Collection("products").FindOneAndUpdate(
			c.Request.Context(),
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"imageCover": publicPath, "updatedAt": time.Now()}},
		).Decode(&previous)
		if err == mongo.ErrNoDocuments {
			_ = os.Remove(target)
			respondError(c, route, NewNotFoundError("product not found"))
			return
		}
		if err != nil {
			_ = os.Remove(target)
			respondError(c, route, NewInternalError(err))
			return
		}

		if previous.ImageCover != "" && previous.ImageCover != publicPath {
			if err := safeDeleteUpload(previous.ImageCover); err != nil {
				log.Printf("[UPLOAD] [WARN] old image delete failed: %v", err)
			}
		}

		log.Println("[UPLOAD] [INFO] image stored:", publicPath)
		respondData(c, http.StatusOK, gin.H{"imageCover": publicPath})
	}
}

func randomFileName(ext string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + ext, nil
}

// safeDeleteUpload removes a stored image, refusing anything that resolves
// outside the upload dir.
func safeDeleteUpload(publicPath string) error {
	trimmed := strings.TrimSpace(publicPath)
	if trimmed == "" {
		return nil
	}

	name := path.Base(path.Clean("/" + trimmed))
	if name == "." || name == "/" || name == ".." {
		return fmt.Errorf("refusing to delete path: %s", publicPath)
	}

	base := filepath.Clean(config.AppEnv.UploadDir)
	target := filepath.Clean(filepath.Join(base, name))
	if target == base || !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload dir: %s", publicPath)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
