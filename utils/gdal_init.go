package utils

// #include "gdal.h"
// #include "gdal_frmts.h"
// #include "cpl_conv.h"
// #include <stdlib.h>
// #cgo pkg-config: gdal
import "C"

import (
	"os"
	"unsafe"
)

func InitGdal() {
	setDefaultEnv("GDAL_PAM_ENABLED", "NO")
	setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	setDefaultEnv("CPL_VSIL_CURL_ALLOWED_EXTENSIONS", "tif,gtiff,jp2,xml")
	setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")

	registerGDALDrivers()
}

// ApplyStorageConfig installs the object-store session settings as GDAL
// config options. The values come from the explicit StorageConfig, never
// from the ambient environment of the processing code.
func ApplyStorageConfig(sc *StorageConfig) {
	if len(sc.S3Endpoint) > 0 {
		setConfigOption("AWS_S3_ENDPOINT", sc.S3Endpoint)
	}
	if len(sc.S3Region) > 0 {
		setConfigOption("AWS_REGION", sc.S3Region)
	}
	if len(sc.S3AccessKey) > 0 {
		setConfigOption("AWS_ACCESS_KEY_ID", sc.S3AccessKey)
	}
	if len(sc.S3SecretKey) > 0 {
		setConfigOption("AWS_SECRET_ACCESS_KEY", sc.S3SecretKey)
	}
	if sc.VirtualHosting {
		setConfigOption("AWS_VIRTUAL_HOSTING", "TRUE")
	} else {
		setConfigOption("AWS_VIRTUAL_HOSTING", "FALSE")
	}
}

func setConfigOption(key, val string) {
	keyC := C.CString(key)
	valC := C.CString(val)
	C.CPLSetConfigOption(keyC, valC)
	C.free(unsafe.Pointer(keyC))
	C.free(unsafe.Pointer(valC))
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

func registerGDALDrivers() {
	// Register the drivers we open most often ahead of the rest
	// (drivers are interrogated in a linear scan).
	var haveGTiff, haveJP2OpenJPEG bool

	C.GDALAllRegister()
	for i := 0; i < int(C.GDALGetDriverCount()); i++ {
		driver := C.GDALGetDriver(C.int(i))
		switch C.GoString(C.GDALGetDriverShortName(driver)) {
		case "GTiff":
			haveGTiff = true
		case "JP2OpenJPEG":
			haveJP2OpenJPEG = true
		}
	}

	for i := int(C.GDALGetDriverCount()) - 1; i >= 0; i-- {
		driver := C.GDALGetDriver(C.int(i))
		C.GDALDeregisterDriver(driver)
	}

	if haveGTiff {
		C.GDALRegister_GTiff()
	}
	if haveJP2OpenJPEG {
		C.GDALRegister_JP2OpenJPEG()
	}
	C.GDALAllRegister()
}
